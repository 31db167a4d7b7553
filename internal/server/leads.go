package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	emaildomain "github.com/funnelbase/funnelbase/internal/email/domain"
)

func (s *Server) HandleStartSequence(c *gin.Context) {
	var req emaildomain.StartSequenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	seq, err := s.emailSvc.StartSequence(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, seq)
}
