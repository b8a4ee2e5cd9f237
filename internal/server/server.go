package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/invoicely/internal/auth"
	authdomain "github.com/smallbiznis/invoicely/internal/auth/domain"
	"github.com/smallbiznis/invoicely/internal/auth/session"
	"github.com/smallbiznis/invoicely/internal/authorization"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/smallbiznis/invoicely/internal/invoice"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicely/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicely/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicely/internal/observability/tracing"
	"github.com/smallbiznis/invoicely/internal/providers"
	"github.com/smallbiznis/invoicely/internal/ratelimit"
	"github.com/smallbiznis/invoicely/internal/settings"
	settingsdomain "github.com/smallbiznis/invoicely/internal/settings/domain"
	"github.com/smallbiznis/invoicely/internal/signup"
	signupdomain "github.com/smallbiznis/invoicely/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const publicDir = "./public"

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	signup.Module,
	settings.Module,
	providers.Module,
	ratelimit.Module,
	invoice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	authsvc     authdomain.Service
	sessions    *session.Manager
	authzSvc    authorization.Service
	settingsSvc settingsdomain.Service
	invoiceSvc  invoicedomain.Service
	signupsvc   signupdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Authsvc     authdomain.Service
	Sessions    *session.Manager
	AuthzSvc    authorization.Service
	SettingsSvc settingsdomain.Service
	InvoiceSvc  invoicedomain.Service
	SignupSvc   signupdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		authsvc:     p.Authsvc,
		sessions:    p.Sessions,
		authzSvc:    p.AuthzSvc,
		settingsSvc: p.SettingsSvc,
		invoiceSvc:  p.InvoiceSvc,
		signupsvc:   p.SignupSvc,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerUIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/signup", s.Signup)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Settings --------
	api.GET("/settings", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsView), s.GetSettings)
	api.PUT("/settings", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UpdateSettings)
	api.POST("/settings/columns", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.AddColumn)
	api.PATCH("/settings/columns/:key", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UpdateColumn)
	api.DELETE("/settings/columns/:key", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.RemoveColumn)
	api.PUT("/settings/logo", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.UploadLogo)
	api.DELETE("/settings/logo", s.authorizeAction(authorization.ObjectSettings, authorization.ActionSettingsUpdate), s.RemoveLogo)

	// -------- Invoices --------
	api.GET("/invoices/next-number", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.NextInvoiceNumber)
	api.POST("/invoices/preview", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.PreviewInvoice)
	api.POST("/invoices", s.authorizeAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id/status", s.UpdateInvoiceStatus)
	api.GET("/invoices/:id/render", s.RenderInvoice)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.AuthRequired())

	admin.GET("/dashboard", s.authorizeAction(authorization.ObjectDashboard, authorization.ActionDashboardView), s.GetDashboard)

	// -------- Signup review --------
	review := admin.Group("", s.authorizeAction(authorization.ObjectAccount, authorization.ActionAccountReview))
	review.GET("/signups", s.ListSignupRequests)
	review.POST("/signups/:id/approve", s.ApproveSignupRequest)
	review.POST("/signups/:id/reject", s.RejectSignupRequest)

	// -------- Users --------
	users := admin.Group("/users", s.authorizeAction(authorization.ObjectAccount, authorization.ActionAccountManage))
	users.GET("", s.ListUsers)
	users.POST("/:id/role", s.SetUserRole)
	users.POST("/:id/suspend", s.SuspendUser)
	users.POST("/:id/reactivate", s.ReactivateUser)
	users.POST("/:id/extend", s.ExtendUserAccess)
}

func (s *Server) registerUIRoutes() {
	r := s.engine.Group("/")

	// ---- SPA entry points ----
	r.GET("/", serveIndex)
	r.GET("/login", s.redirectIfLoggedIn(), serveIndex)
	r.GET("/signup", s.redirectIfLoggedIn(), serveIndex)
	r.GET("/invoices", serveIndex)
	r.GET("/invoices/:id", serveIndex)
	r.GET("/settings", serveIndex)
	r.GET("/dashboard", serveIndex)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		// static assets (vite)
		if fileExists(publicDir, c.Request.URL.Path) {
			c.File(publicDir + c.Request.URL.Path)
			return
		}

		// SPA fallback
		serveIndex(c)
	})
}

func serveIndex(c *gin.Context) {
	c.File(filepath.Join(publicDir, "index.html"))
}

func fileExists(dir, reqPath string) bool {
	clean := filepath.Clean(reqPath)

	// prevent path traversal
	if clean == "." || clean == "/" || clean == ".." {
		return false
	}

	fullPath := filepath.Join(dir, clean)

	info, err := os.Stat(fullPath)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
