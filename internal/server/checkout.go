package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	checkoutdomain "github.com/funnelbase/funnelbase/internal/checkout/domain"
)

func (s *Server) HandleCreateOrder(c *gin.Context) {
	var req checkoutdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.checkoutLimiter.Allow(c.Request.Context(), req.UserID, c.ClientIP())
	if err != nil {
		// Limiter trouble never blocks checkout.
		s.log.Warn("checkout rate limiter unavailable", zap.Error(err))
	} else if !result.Allowed {
		AbortWithError(c, ErrRateLimited)
		return
	}

	resp, err := s.checkoutSvc.CreateOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (s *Server) HandleListPlans(c *gin.Context) {
	plans, err := s.planRepo.ListActive(c.Request.Context(), s.db)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}
