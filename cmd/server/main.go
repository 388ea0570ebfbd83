package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/fleetride/backoffice/internal/config"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/handlers"
	"github.com/fleetride/backoffice/internal/middleware"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/notify"
	"github.com/fleetride/backoffice/internal/services"
	"github.com/fleetride/backoffice/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting FleetRide Back Office")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize repositories
	companyRepo := database.NewCompanyRepository(db)
	userRepo := database.NewUserRepository(db)
	cityRepo := database.NewCityRepository(db)
	customerRepo := database.NewCustomerRepository(db)
	driverRepo := database.NewDriverRepository(db)
	availabilityRepo := database.NewAvailabilityRepository(db)
	locationRepo := database.NewLocationRepository(db)
	bookingRepo := database.NewBookingRepository(db)
	scheduleRepo := database.NewScheduleRepository(db)

	// Initialize event publisher. Without a Redis address events are dropped.
	var publisher notify.Publisher = notify.NoopPublisher{}
	if cfg.Redis.Addr != "" {
		redisPublisher, err := notify.NewRedisPublisher(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisPublisher.Close()
		publisher = redisPublisher
		logger.Info("Redis event publisher enabled")
	} else {
		logger.Info("REDIS_ADDR not set, event publishing disabled")
	}

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	dispatchService := services.NewDispatchService(driverRepo, logger)
	bookingService := services.NewBookingService(
		db,
		bookingRepo,
		driverRepo,
		customerRepo,
		companyRepo,
		dispatchService,
		publisher,
		logger,
	)
	scheduleService := services.NewScheduleService(
		db,
		scheduleRepo,
		bookingRepo,
		cityRepo,
		companyRepo,
		availabilityRepo,
		dispatchService,
		publisher,
		logger,
	)
	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService, cfg.Security.BcryptCost, logger)
	companyHandler := handlers.NewCompanyHandler(companyRepo, logger)
	cityHandler := handlers.NewCityHandler(cityRepo)
	customerHandler := handlers.NewCustomerHandler(customerRepo)
	driverHandler := handlers.NewDriverHandler(driverRepo, availabilityRepo, locationRepo, dispatchService, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(middleware.Metrics())

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check and metrics endpoints
	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)

			// Staff management requires an admin token
			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			protected.Use(middleware.RequireRole(models.RoleSuperAdmin, models.RoleCompanyAdmin))
			{
				protected.POST("/users", authHandler.CreateUser)
			}
		}

		// Company registration is public; the rest of the company surface is
		// protected and approval is reserved for super admins
		companies := v1.Group("/companies")
		{
			companies.POST("/register", companyHandler.RegisterCompany)

			companiesProtected := companies.Group("")
			companiesProtected.Use(middleware.AuthMiddleware(jwtService))
			{
				companiesProtected.GET("/:id", companyHandler.GetCompany)

				admin := companiesProtected.Group("")
				admin.Use(middleware.RequireRole(models.RoleSuperAdmin))
				{
					admin.GET("", companyHandler.ListCompanies)
					admin.POST("/:id/approve", companyHandler.ApproveCompany)
					admin.POST("/:id/reject", companyHandler.RejectCompany)
				}
			}
		}

		// City routes (protected)
		cities := v1.Group("/cities")
		cities.Use(middleware.AuthMiddleware(jwtService))
		{
			cities.GET("", cityHandler.ListCities)
			cities.GET("/:id", cityHandler.GetCity)

			admin := cities.Group("")
			admin.Use(middleware.RequireRole(models.RoleSuperAdmin))
			{
				admin.POST("", cityHandler.CreateCity)
				admin.DELETE("/:id", cityHandler.DeleteCity)
			}
		}

		// Customer routes (protected)
		customers := v1.Group("/customers")
		customers.Use(middleware.AuthMiddleware(jwtService))
		{
			customers.POST("", customerHandler.CreateCustomer)
			customers.GET("", customerHandler.ListCustomers)
			customers.GET("/:id", customerHandler.GetCustomer)
			customers.PUT("/:id", customerHandler.UpdateCustomer)
			customers.DELETE("/:id", customerHandler.DeleteCustomer)
		}

		// Driver routes (protected)
		drivers := v1.Group("/drivers")
		drivers.Use(middleware.AuthMiddleware(jwtService))
		{
			drivers.POST("", driverHandler.CreateDriver)
			drivers.GET("", driverHandler.ListDrivers)
			drivers.GET("/:id", driverHandler.GetDriver)
			drivers.PUT("/:id", driverHandler.UpdateDriver)
			drivers.DELETE("/:id", driverHandler.DeleteDriver)
			drivers.PATCH("/:id/status", driverHandler.UpdateStatus)
			drivers.PUT("/:id/location", driverHandler.UpdateLocation)
			drivers.GET("/:id/location", driverHandler.GetLocation)
			drivers.POST("/:id/availability", driverHandler.CreateAvailability)
			drivers.GET("/:id/availability", driverHandler.ListAvailability)
			drivers.DELETE("/:id/availability/:windowId", driverHandler.DeleteAvailability)
		}

		// Booking routes (protected)
		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.PUT("/:id", bookingHandler.UpdateBooking)
			bookings.POST("/:id/assign-driver", bookingHandler.AssignDriver)
			bookings.POST("/:id/accept", bookingHandler.AcceptBooking)
			bookings.POST("/:id/start", bookingHandler.StartTrip)
			bookings.POST("/:id/complete", bookingHandler.CompleteBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.GET("/stats/:companyId", bookingHandler.GetStatistics)
		}

		// Intercity schedule routes (protected)
		schedules := v1.Group("/schedules")
		schedules.Use(middleware.AuthMiddleware(jwtService))
		{
			schedules.POST("", scheduleHandler.CreateSchedule)
			schedules.GET("", scheduleHandler.ListSchedules)
			schedules.GET("/available-return-schedules", scheduleHandler.GetAvailableReturnSchedules)
			schedules.GET("/:id", scheduleHandler.GetSchedule)
			schedules.POST("/:id/start", scheduleHandler.StartTrip)
			schedules.POST("/:id/arrive", scheduleHandler.MarkArrived)
			schedules.POST("/:id/start-return", scheduleHandler.StartReturn)
			schedules.POST("/:id/complete", scheduleHandler.CompleteSchedule)
			schedules.POST("/:id/cancel", scheduleHandler.CancelSchedule)
			schedules.GET("/:id/bookings", scheduleHandler.ListBookings)
			schedules.POST("/:id/assign-booking", scheduleHandler.AssignBooking)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}
		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
			if userCtx.CompanyID != nil {
				fields["company_id"] = *userCtx.CompanyID
			}
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
