package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/kindbridge/kindbridge/internal/payment/domain"
)

const maxWebhookBody = 1 << 20

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
	s.engine.GET("/webhooks/stripe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if err := s.webhookSvc.HandleWebhook(c.Request.Context(), payload, sigHeader); err != nil {
		if isSignatureError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func isSignatureError(err error) bool {
	return errors.Is(err, paymentdomain.ErrMissingSignature) ||
		errors.Is(err, paymentdomain.ErrInvalidSignature) ||
		errors.Is(err, paymentdomain.ErrInvalidPayload)
}
