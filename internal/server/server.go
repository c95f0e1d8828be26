package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/haulbase/freightpay/internal/config"
	"github.com/haulbase/freightpay/internal/payment/router"
	tenantconfigdomain "github.com/haulbase/freightpay/internal/tenantconfig/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	configSvc tenantconfigdomain.Service
	router    *router.Router
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	ConfigSvc tenantconfigdomain.Service
	Router    *router.Router
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("http.server"),
		configSvc: p.ConfigSvc,
		router:    p.Router,
	}

	svc.registerPaymentRoutes()

	return svc
}

func (s *Server) registerPaymentRoutes() {
	// The catalog is process-wide; no tenant needed.
	s.engine.GET("/api/payments/providers", s.ListProviderCatalog)

	api := s.engine.Group("/api/payments", TenantRequired())
	{
		api.GET("/config", s.GetTenantConfig)
		api.GET("/active-providers", s.ListActiveProviders)

		api.POST("/invoices", s.CreateInvoice)

		api.POST("/providers/:provider/test", s.TestProviderConnection)
		api.POST("/providers/:provider/enable", s.EnableProvider)
		api.POST("/providers/:provider/disable", s.DisableProvider)
		api.DELETE("/providers/:provider", s.RemoveProvider)

		api.POST("/primary", s.SetPrimaryProvider)
		api.PATCH("/preferences", s.UpdatePreferences)
	}
}
