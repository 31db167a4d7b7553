package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/funnelbase/funnelbase/internal/payment/domain"
	"github.com/funnelbase/funnelbase/internal/payment/gateway/mercadopago"
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if secret := s.cfg.MercadoPago.WebhookSecret; secret != "" {
		signature := c.GetHeader("x-signature")
		if !mercadopago.ValidateSignature(signature, payload, secret) {
			AbortWithError(c, paymentdomain.ErrInvalidSignature)
			return
		}
	}

	err = s.paymentSvc.IngestWebhook(c.Request.Context(), payload, c.GetString("request_id"))
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
