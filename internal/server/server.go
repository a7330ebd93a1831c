package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"workshops/internal/admin"
	"workshops/internal/auth"
	"workshops/internal/config"
	"workshops/internal/email"
	"workshops/internal/paylink"
	"workshops/internal/payment"
	"workshops/internal/registration"
	"workshops/internal/webhook"
	"workshops/internal/workshop"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	email  *email.Service
}

// New wires repositories, services and routes. emailService may be nil, in
// which case no emails are queued.
func New(db *sqlx.DB, cfg *config.Config, emailService *email.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware(cfg.CORSOrigins))

	workshopRepo := workshop.NewRepository(db)
	registrationRepo := registration.NewRepository(db)
	paymentRepo := payment.NewRepository(db)
	auditRepo := webhook.NewAuditRepository(db)

	var (
		links              registration.LinkProvider
		registrationNotify registration.Notifier
		paymentNotify      payment.Notifier
	)
	if cfg.PaymentsAPIURL != "" {
		links = paylink.New(cfg.PaymentsAPIURL, cfg.PaymentsAPIKey)
	}
	if emailService != nil {
		registrationNotify = emailService
		paymentNotify = emailService
	}

	workshopService := workshop.NewService(workshopRepo)
	registrationService := registration.NewService(registrationRepo, workshopRepo, links, registrationNotify)
	ledger := payment.NewLedger(paymentRepo, paymentNotify)
	matcher := webhook.NewMatcher(registrationRepo, cfg.MatchWindow)
	processor := webhook.NewProcessor(matcher, ledger, auditRepo, cfg.WebhookSource, cfg.AmountScale())
	gateway := admin.NewGateway(workshopRepo, registrationRepo, ledger)

	cookie := auth.NewCookie(cfg.AdminCookieName, cfg.AdminCookieSecret)
	credentials := auth.Credentials{PasswordHash: cfg.AdminPasswordHash, Password: cfg.AdminPassword}

	workshopHandler := workshop.NewHandler(workshopService)
	registrationHandler := registration.NewHandler(registrationService)
	webhookHandler := webhook.NewHandler(processor, auditRepo)
	adminHandler := admin.NewHandler(gateway)
	authHandler := auth.NewHandler(cookie, credentials, cfg.AdminCookieSecure)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router, cfg.Version)

	public := router.Group("/api")
	{
		public.GET("/workshops", workshopHandler.ListPublic)
		public.GET("/workshops/by-token/:token", workshopHandler.GetByToken)
		public.POST("/register", RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst), registrationHandler.Register)
		// Not rate limited: the provider must always get a 200.
		public.POST("/payment-webhook", webhookHandler.Receive)
	}

	session := router.Group("/api/admin")
	{
		session.POST("/login", RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst), authHandler.Login)
		session.POST("/logout", authHandler.Logout)
	}

	protected := router.Group("/api/admin")
	protected.Use(auth.RequireAdmin(cookie))
	{
		protected.GET("/workshops", workshopHandler.ListAll)
		protected.POST("/workshops", workshopHandler.Create)
		protected.PATCH("/workshops/:id", adminHandler.PatchWorkshop)
		protected.DELETE("/workshops/:id", adminHandler.DeleteWorkshop)

		protected.GET("/registrations", adminHandler.ListRegistrations)
		protected.GET("/registrations/export", adminHandler.ExportRegistrations)
		protected.PATCH("/registrations/:id", adminHandler.PatchRegistration)
		protected.DELETE("/registrations/:id", adminHandler.DeleteRegistration)
		protected.GET("/registrations/:id/payments", adminHandler.ListPayments)
		protected.POST("/registrations/:id/payments", adminHandler.AddPayment)
		protected.DELETE("/registrations/:id/payments/:paymentId", adminHandler.DeletePayment)

		protected.GET("/webhook-events", webhookHandler.ListEvents)

		if emailService != nil {
			protected.POST("/test-email", TestEmail(emailService))
		}
	}

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		email:  emailService,
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// corsMiddleware allows the configured comma-separated origins, or any
// origin when the list is "*".
func corsMiddleware(allowedOrigins string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding",
			"Authorization", "Cache-Control", "X-Requested-With",
		},
		MaxAge: 12 * time.Hour,
	}
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			cfg.AllowAllOrigins = true
		} else if o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}

	// Credentialed requests need an explicit origin list.
	if cfg.AllowAllOrigins || len(cfg.AllowOrigins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowOrigins = nil
	} else {
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}
