package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/bus"
	"github.com/NanaWhan/RamadanApi/internal/config"
	donationdomain "github.com/NanaWhan/RamadanApi/internal/donation/domain"
	"github.com/NanaWhan/RamadanApi/internal/event"
	"github.com/NanaWhan/RamadanApi/internal/newsletter"
	"github.com/NanaWhan/RamadanApi/internal/partner"
	statsdomain "github.com/NanaWhan/RamadanApi/internal/stats/domain"
	"github.com/NanaWhan/RamadanApi/internal/volunteer"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	DB            *gorm.DB
	Bus           *bus.Bus
	DonationSvc   donationdomain.Service
	StatsSvc      statsdomain.Service
	VolunteerSvc  volunteer.Service
	PartnerSvc    partner.Service
	EventSvc      event.Service
	NewsletterSvc newsletter.Service
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	bus    *bus.Bus

	donationSvc   donationdomain.Service
	statsSvc      statsdomain.Service
	volunteerSvc  volunteer.Service
	partnerSvc    partner.Service
	eventSvc      event.Service
	newsletterSvc newsletter.Service

	publicLimiter *rateLimiter
}

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log.Named("http")))
	return engine
}

func NewServer(engine *gin.Engine, p Params) *Server {
	return &Server{
		engine:        engine,
		cfg:           p.Cfg,
		log:           p.Log.Named("server"),
		db:            p.DB,
		bus:           p.Bus,
		donationSvc:   p.DonationSvc,
		statsSvc:      p.StatsSvc,
		volunteerSvc:  p.VolunteerSvc,
		partnerSvc:    p.PartnerSvc,
		eventSvc:      p.EventSvc,
		newsletterSvc: p.NewsletterSvc,
		publicLimiter: newRateLimiter(30, time.Minute),
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Health)

	api := s.engine.Group("/api/v1")

	donations := api.Group("/donations")
	donations.POST("", s.PublicRateLimit(), s.CreateDonation)
	donations.POST("/form", s.PublicRateLimit(), s.SubmitDonationForm)
	donations.GET("/status/:reference", s.CheckDonationStatus)
	donations.POST("/webhook/paystack", s.GatewayWebhook)

	api.GET("/statistics", s.GetStatistics)

	volunteers := api.Group("/volunteers")
	volunteers.POST("", s.PublicRateLimit(), s.RegisterVolunteer)

	partners := api.Group("/partners")
	partners.POST("", s.PublicRateLimit(), s.RegisterPartner)

	evts := api.Group("/events")
	evts.GET("", s.ListEvents)
	evts.GET("/:id", s.GetEvent)
	evts.POST("/:id/register", s.PublicRateLimit(), s.RegisterForEvent)

	api.POST("/newsletter/subscribe", s.PublicRateLimit(), s.SubscribeNewsletter)

	api.POST("/admin/login", s.AdminLogin)

	admin := api.Group("/admin", s.AdminRequired())
	admin.GET("/donations", s.ListDonations)
	admin.POST("/donations/:reference/verify", s.VerifyDonation)
	admin.POST("/donations/:reference/status", s.ForceDonationStatus)
	admin.GET("/volunteers", s.ListVolunteers)
	admin.GET("/partners", s.ListPartners)
	admin.GET("/newsletter/subscribers", s.ListSubscribers)
	admin.POST("/events", s.CreateEvent)
	admin.PATCH("/events/:id", s.UpdateEvent)
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PublicRateLimit throttles unauthenticated write endpoints per client IP.
func (s *Server) PublicRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.publicLimiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func RunHTTP(lc fx.Lifecycle, s *Server, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
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

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
