package server

import (
	"github.com/gin-gonic/gin"
	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
)

// CreateInvoice routes a unified invoice request to the tenant's processor.
// The body is always the unified response; the HTTP status mirrors its
// error code.
func (s *Server) CreateInvoice(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req paymentdomain.UnifiedInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.TenantID = tenantID

	if _, ok := paymentdomain.ParseProvider(string(req.Provider)); !ok {
		resp := paymentdomain.Failure(req.Provider, tenantID, paymentdomain.CodeProviderNotFound, "unknown provider")
		c.JSON(statusForResponse(resp), resp)
		return
	}

	resp := s.router.CreateInvoice(c.Request.Context(), req)
	c.JSON(statusForResponse(resp), resp)
}
