package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kindbridge/kindbridge/internal/checkout"
)

func (s *Server) registerCheckoutRoutes() {
	api := s.engine.Group("/api")
	api.POST("/checkout/express", s.ExpressCheckout)
}

func (s *Server) ExpressCheckout(c *gin.Context) {
	var req checkout.ExpressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.checkoutSvc.Express(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
