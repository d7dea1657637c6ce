package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/course-api/internal/config"
	"github.com/yourusername/course-api/internal/handler"
	"github.com/yourusername/course-api/internal/middleware"
	"github.com/yourusername/course-api/internal/payment"
	"github.com/yourusername/course-api/internal/payment/midtrans"
	"github.com/yourusername/course-api/internal/payment/stripe"
	pgRepo "github.com/yourusername/course-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/course-api/internal/repository/redis"
	"github.com/yourusername/course-api/internal/service"
	ws "github.com/yourusername/course-api/internal/websocket"
	"github.com/yourusername/course-api/pkg/auth"
	"github.com/yourusername/course-api/pkg/database"
	"github.com/yourusername/course-api/pkg/reporting"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}
	isProduction := gin.Mode() == gin.ReleaseMode

	reporting.Init(reporting.Config{
		Token:       cfg.Rollbar.Token,
		Environment: cfg.Rollbar.Environment,
		CodeVersion: cfg.Rollbar.CodeVersion,
	})
	defer reporting.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL + миграции
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), database.DefaultPoolConfig(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.MigrateDB(db, cfg.Database.MigrationsDir); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Репозитории
	domainRepo := pgRepo.NewDomainRepo(db)
	userRepo := pgRepo.NewUserRepo(db)
	courseRepo := pgRepo.NewCourseRepo(db)
	communityRepo := pgRepo.NewCommunityRepo(db)
	planRepo := pgRepo.NewPaymentPlanRepo(db)
	membershipRepo := pgRepo.NewMembershipRepo(db)
	invoiceRepo := pgRepo.NewInvoiceRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// WebSocket: события доставляются на все инстансы через Redis Pub/Sub
	pubSubProvider, err := ws.NewRedisPubSub(redisClient)
	if err != nil {
		log.Printf("Failed to initialize Redis PubSub: %v", err)
		os.Exit(1)
	}
	wsHub := ws.NewHub(pubSubProvider)
	if err := wsHub.Start(ctx); err != nil {
		log.Printf("Failed to start WebSocket hub: %v", err)
		os.Exit(1)
	}
	wsManager := ws.NewManager(wsHub)

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.WSTicketExpirySec)
	if err != nil {
		log.Printf("Failed to initialize JWT service: %v", err)
		os.Exit(1)
	}

	// Платёжные шлюзы регистрируются только при наличии ключей
	gateways := payment.NewRegistry()
	if cfg.Payment.Stripe.SecretKey != "" {
		gateway, err := stripe.New(stripe.Config{
			SecretKey:     cfg.Payment.Stripe.SecretKey,
			WebhookSecret: cfg.Payment.Stripe.WebhookSecret,
			Currency:      cfg.Payment.Stripe.Currency,
		})
		if err != nil {
			log.Printf("Failed to initialize Stripe: %v", err)
			os.Exit(1)
		}
		gateways.Register(gateway)
	}
	if cfg.Payment.Midtrans.ServerKey != "" {
		gateway, err := midtrans.New(midtrans.Config{
			ServerKey:  cfg.Payment.Midtrans.ServerKey,
			Production: cfg.Payment.Midtrans.Production,
			Currency:   cfg.Payment.Midtrans.Currency,
		})
		if err != nil {
			log.Printf("Failed to initialize Midtrans: %v", err)
			os.Exit(1)
		}
		gateways.Register(gateway)
	}

	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.ResendAPIKey != "" {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize Resend: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	} else {
		log.Println("Resend API key не задан, письма не отправляются")
	}

	// Сервисы
	notificationService := service.NewNotificationService(emailService, wsManager, userRepo, courseRepo, communityRepo)
	membershipService := service.NewMembershipService(membershipRepo, communityRepo, notificationService)
	paymentService := service.NewPaymentService(userRepo, courseRepo, communityRepo, planRepo,
		membershipRepo, invoiceRepo, cacheRepo, gateways, membershipService)
	webhookService := service.NewWebhookService(domainRepo, planRepo, membershipRepo, invoiceRepo,
		cacheRepo, gateways, membershipService, notificationService)
	attemptService := service.NewAttemptService(quizRepo, questionRepo, attemptRepo, cacheRepo, wsManager, cfg.Quiz.DisplayCacheTTL)
	quizService := service.NewQuizService(quizRepo, questionRepo, attemptRepo, cacheRepo)
	exportService := service.NewExportService(quizRepo, attemptRepo, userRepo)

	// Обработчики
	quizHandler := handler.NewQuizHandler(quizService, exportService)
	attemptHandler := handler.NewAttemptHandler(attemptService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	userHandler := handler.NewUserHandler(jwtService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, jwtService, cfg.Server.AllowedOrigins)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, userRepo)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	paymentLimit := middleware.PaymentRateLimitConfig(cfg.RateLimit.PaymentMaxRequests, cfg.RateLimit.PaymentWindow)

	router := gin.Default()

	// В production не доверяем прокси-заголовкам (c.ClientIP используется rate limiter)
	trustedProxies := []string{"127.0.0.1", "::1"}
	if isProduction {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.DomainHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_clients": wsHub.ClientCount()})
	})

	tenant := router.Group("")
	tenant.Use(middleware.TenantMiddleware(domainRepo))

	tenant.GET("/ws", wsHandler.HandleConnection)

	api := tenant.Group("/api")
	{
		// Вебхуки шлюзов: без аутентификации, подпись проверяет шлюз
		api.POST("/payment/webhook/:method", webhookHandler.Handle)

		authed := api.Group("")
		authed.Use(authMiddleware.RequireAuth())
		{
			users := authed.Group("/users")
			{
				users.GET("/me", userHandler.GetMe)
				users.POST("/me/ws-ticket", userHandler.IssueWSTicket)
			}

			paymentGroup := authed.Group("/payment")
			paymentGroup.Use(rateLimiter.LimitByUser(paymentLimit))
			{
				paymentGroup.POST("/initiate", paymentHandler.Initiate)
				paymentGroup.POST("/verify-new", paymentHandler.VerifyNew)
			}

			authed.POST("/memberships/:id/cancel",
				middleware.ExtractIDParam("id", "membershipID"), paymentHandler.CancelMembership)

			quizzes := authed.Group("/quizzes")
			{
				quizzes.POST("", authMiddleware.AdminOnly(), quizHandler.CreateQuiz)

				quizWithID := quizzes.Group("/:id")
				quizWithID.Use(middleware.ExtractIDParam("id", "quizID"))
				{
					quizWithID.POST("/attempts", attemptHandler.StartAttempt)
					quizWithID.GET("/attempt-view", attemptHandler.GetAttemptView)
					quizWithID.GET("/my-attempts", attemptHandler.ListMyAttempts)

					adminQuizzes := quizWithID.Group("")
					adminQuizzes.Use(authMiddleware.AdminOnly())
					{
						adminQuizzes.GET("", quizHandler.GetQuiz)
						adminQuizzes.PUT("", quizHandler.UpdateSettings)
						adminQuizzes.POST("/questions", quizHandler.AddQuestion)
						adminQuizzes.PUT("/publish", quizHandler.SetPublished)
						adminQuizzes.GET("/attempts/export", quizHandler.ExportAttempts)
					}
				}
			}

			attempts := authed.Group("/attempts/:id")
			attempts.Use(middleware.ExtractIDParam("id", "attemptID"))
			{
				attempts.GET("", attemptHandler.GetAttempt)
				attempts.POST("/submit", attemptHandler.SubmitAttempt)
				attempts.POST("/evaluate", authMiddleware.AdminOnly(), attemptHandler.EvaluateAttempt)
			}
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cancel()
	wsHub.Stop()

	log.Println("Server exited properly")
}
