package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/affilia/internal/affiliate"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/internal/application"
	applicationdomain "github.com/smallbiznis/affilia/internal/application/domain"
	"github.com/smallbiznis/affilia/internal/attribution"
	attributiondomain "github.com/smallbiznis/affilia/internal/attribution/domain"
	"github.com/smallbiznis/affilia/internal/click"
	clickdomain "github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/internal/config"
	"github.com/smallbiznis/affilia/internal/events"
	"github.com/smallbiznis/affilia/internal/lock"
	"github.com/smallbiznis/affilia/internal/rateschedule"
	ratescheduledomain "github.com/smallbiznis/affilia/internal/rateschedule/domain"
	"github.com/smallbiznis/affilia/internal/retryqueue"
	retryqueuedomain "github.com/smallbiznis/affilia/internal/retryqueue/domain"
	"github.com/smallbiznis/affilia/internal/upline"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	events.Module,
	lock.Module,
	affiliate.Module,
	upline.Module,
	click.Module,
	rateschedule.Module,
	application.Module,
	attribution.Module,
	retryqueue.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	affiliateSvc affiliatedomain.Service
	clickSvc     clickdomain.Service
	appSvc       applicationdomain.Service
	engineSvc    attributiondomain.Engine
	rateSvc      ratescheduledomain.Service
	retrySvc     retryqueuedomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	AffiliateSvc affiliatedomain.Service
	ClickSvc     clickdomain.Service
	AppSvc       applicationdomain.Service
	EngineSvc    attributiondomain.Engine
	RateSvc      ratescheduledomain.Service
	RetrySvc     retryqueuedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		affiliateSvc: p.AffiliateSvc,
		clickSvc:     p.ClickSvc,
		appSvc:       p.AppSvc,
		engineSvc:    p.EngineSvc,
		rateSvc:      p.RateSvc,
		retrySvc:     p.RetrySvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Affiliates --------
	v1.POST("/affiliates", s.RegisterAffiliate)
	v1.GET("/affiliates", s.ListAffiliates)
	v1.GET("/affiliates/:id", s.GetAffiliateByID)
	v1.POST("/affiliates/:id/approve", s.ApproveAffiliate)
	v1.POST("/affiliates/:id/suspend", s.SuspendAffiliate)
	v1.GET("/affiliates/:id/commissions", s.ListAffiliateCommissions)

	// -------- Clicks --------
	v1.POST("/clicks", s.RecordClick)
	v1.GET("/clicks", s.ListClicks)
	v1.POST("/clicks/:id/convert", s.ConvertClick)

	// -------- Applications --------
	v1.POST("/applications", s.CreateApplication)
	v1.GET("/applications/:id", s.GetApplicationByID)
	v1.POST("/applications/:id/approve", s.ApproveApplication)
	v1.GET("/applications/:id/commissions", s.ListApplicationCommissions)

	// -------- Attribution --------
	v1.POST("/attributions", s.Attribute)

	// -------- Rate schedule --------
	v1.GET("/rate-schedule", s.GetRateSchedule)
	v1.PUT("/rate-schedule", s.ReplaceRateSchedule)

	// -------- Retry queue --------
	v1.GET("/retries", s.ListRetries)
	v1.POST("/retries/:id/retry", s.RetryAttribution)
}
