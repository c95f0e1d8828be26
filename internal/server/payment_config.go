package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/haulbase/freightpay/internal/catalog"
	paymentdomain "github.com/haulbase/freightpay/internal/payment/domain"
	tenantconfigdomain "github.com/haulbase/freightpay/internal/tenantconfig/domain"
)

// ListProviderCatalog returns the static processor catalog.
func (s *Server) ListProviderCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": catalog.Providers()})
}

// GetTenantConfig returns the tenant configuration with credentials
// stripped. Only enabled, connected and environment leave the core.
func (s *Server) GetTenantConfig(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.configSvc.Redacted(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) ListActiveProviders(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	providers, err := s.configSvc.ActiveProviders(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_providers": providers})
}

type enableProviderRequest struct {
	Environment paymentdomain.Environment `json:"environment"`

	Square     *paymentdomain.SquareCredentials     `json:"square,omitempty"`
	BillCom    *paymentdomain.BillComCredentials    `json:"billcom,omitempty"`
	QuickBooks *paymentdomain.QuickBooksCredentials `json:"quickbooks,omitempty"`
	Stripe     *paymentdomain.StripeCredentials     `json:"stripe,omitempty"`
}

type enableProviderResponse struct {
	Config     *tenantconfigdomain.RedactedConfig `json:"config"`
	Connection paymentdomain.ConnectionResult     `json:"connection"`
}

// EnableProvider stores the submitted credentials, then runs a connection
// test and records the result. A failed test leaves the provider enabled but
// disconnected, so it cannot be selected as primary yet.
func (s *Server) EnableProvider(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	provider, ok := providerParam(c)
	if !ok {
		AbortWithError(c, paymentdomain.ErrProviderNotFound)
		return
	}

	var req enableProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	creds := paymentdomain.ProviderCredentials{
		Provider:    provider,
		Enabled:     true,
		Environment: req.Environment,
		Square:      req.Square,
		BillCom:     req.BillCom,
		QuickBooks:  req.QuickBooks,
		Stripe:      req.Stripe,
	}

	cfg, err := s.configSvc.EnableProvider(c.Request.Context(), tenantID, creds)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result := s.router.TestConnection(c.Request.Context(), tenantID, provider)
	if result.Success {
		cfg, err = s.configSvc.SetConnected(c.Request.Context(), tenantID, provider, true)
		if err != nil {
			AbortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, enableProviderResponse{Config: cfg, Connection: result})
}

func (s *Server) DisableProvider(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	provider, ok := providerParam(c)
	if !ok {
		AbortWithError(c, paymentdomain.ErrProviderNotFound)
		return
	}

	cfg, err := s.configSvc.DisableProvider(c.Request.Context(), tenantID, provider)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) RemoveProvider(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	provider, ok := providerParam(c)
	if !ok {
		AbortWithError(c, paymentdomain.ErrProviderNotFound)
		return
	}

	cfg, err := s.configSvc.RemoveProvider(c.Request.Context(), tenantID, provider)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type setPrimaryRequest struct {
	Provider string `json:"provider"`
}

func (s *Server) SetPrimaryProvider(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req setPrimaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	provider, ok := paymentdomain.ParseProvider(req.Provider)
	if !ok || provider == "" {
		AbortWithError(c, paymentdomain.ErrProviderNotFound)
		return
	}

	cfg, err := s.configSvc.SetPrimaryProvider(c.Request.Context(), tenantID, provider)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) UpdatePreferences(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var patch tenantconfigdomain.PreferencesPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.configSvc.UpdatePreferences(c.Request.Context(), tenantID, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// TestProviderConnection runs a live credential check. It never mutates
// tenant configuration; the result is reported, not recorded.
func (s *Server) TestProviderConnection(c *gin.Context) {
	tenantID, ok := tenantFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	provider, ok := providerParam(c)
	if !ok {
		AbortWithError(c, paymentdomain.ErrProviderNotFound)
		return
	}

	result := s.router.TestConnection(c.Request.Context(), tenantID, provider)
	c.JSON(http.StatusOK, result)
}

func providerParam(c *gin.Context) (paymentdomain.Provider, bool) {
	provider, ok := paymentdomain.ParseProvider(c.Param("provider"))
	if !ok || provider == "" {
		return "", false
	}
	return provider, true
}
