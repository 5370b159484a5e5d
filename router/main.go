package router

import (
	"log"
	"os"
	"time"

	"github.com/bimbelkita/bimbel-api/config"
	"github.com/bimbelkita/bimbel-api/database"
	"github.com/bimbelkita/bimbel-api/handlers"
	admin_handlers "github.com/bimbelkita/bimbel-api/handlers/admin"
	attempt_handlers "github.com/bimbelkita/bimbel-api/handlers/attempt"
	auth_handlers "github.com/bimbelkita/bimbel-api/handlers/auth"
	invoice_handlers "github.com/bimbelkita/bimbel-api/handlers/invoice"
	pkg_handlers "github.com/bimbelkita/bimbel-api/handlers/pkg"
	question_handlers "github.com/bimbelkita/bimbel-api/handlers/question"
	slot_handlers "github.com/bimbelkita/bimbel-api/handlers/slot"
	subscription_handlers "github.com/bimbelkita/bimbel-api/handlers/subscription"
	"github.com/bimbelkita/bimbel-api/services/ai"
	"github.com/bimbelkita/bimbel-api/services/booking"
	"github.com/bimbelkita/bimbel-api/services/quiz"
	"github.com/bimbelkita/bimbel-api/services/spaces"
	"github.com/bimbelkita/bimbel-api/services/subscription"
	"github.com/bimbelkita/bimbel-api/utils/auth"
	"github.com/bimbelkita/bimbel-api/utils/cache"
	"github.com/bimbelkita/bimbel-api/utils/middleware"
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes wires every handler onto the Fiber app
func SetupRoutes(app *fiber.App, store *database.GORMStore, getEnv *config.EnviornmentVariable) {
	if getEnv.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	jwtIssuer := getEnv.JWT_ISSUER
	if jwtIssuer == "" {
		jwtIssuer = "bimbel-api"
	}

	jwtConfig := auth.JWTConfig{
		Secret:        getEnv.JWT_SECRET,
		Expiry:        24 * time.Hour,     // Access token expires in 24 hours
		RefreshExpiry: 7 * 24 * time.Hour, // Refresh token expires in 7 days
		Issuer:        jwtIssuer,
	}
	jwtManager := auth.NewJWTManager(jwtConfig)

	db := store.GetDB()

	// Redis backs brute force protection and the subscription status cache.
	// The API stays up without it; both features degrade gracefully.
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Brute force protection and status caching will be disabled.", err)
		redisCache = nil
	}

	var bruteForceProtection *middleware.BruteForceProtection
	if redisCache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(redisCache)
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	// Spaces client for payment proofs; without credentials uploads fail
	// loudly at request time rather than at boot
	var spacesClient *spaces.Client
	if getEnv.SPACES_KEY != "" {
		spacesClient, err = spaces.NewClient(spaces.Config{
			AccessKey: getEnv.SPACES_KEY,
			SecretKey: getEnv.SPACES_SECRET,
			Bucket:    getEnv.SPACES_BUCKET,
			Region:    getEnv.SPACES_REGION,
			Endpoint:  getEnv.SPACES_ENDPOINT,
			CDNURL:    getEnv.SPACES_CDN_URL,
		})
		if err != nil {
			log.Printf("Warning: Failed to initialize Spaces client: %v", err)
		}
	}

	// AI question generation is optional; the endpoint reports 502 when the
	// key is missing
	var aiClient *ai.Client
	if getEnv.AI_API_KEY != "" {
		aiClient = ai.NewClient(ai.Config{
			APIKey:  getEnv.AI_API_KEY,
			BaseURL: getEnv.AI_BASE_URL,
			Model:   getEnv.AI_MODEL,
		})
	}

	// Domain services
	subscriptionService := subscription.NewService(db, redisCache, getEnv.ADMIN_FEE, getEnv.SUBSCRIPTION_DAYS)
	bookingService := booking.NewService(db)
	quizService := quiz.NewService(db)

	subscriptionGate := middleware.NewSubscriptionGate(subscriptionService)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection)
	packageHandler := pkg_handlers.NewPackageHandler(db)
	invoiceHandler := invoice_handlers.NewInvoiceHandler(db, subscriptionService, spacesClient)
	statusHandler := subscription_handlers.NewStatusHandler(subscriptionService)
	slotHandler := slot_handlers.NewSlotHandler(db, bookingService)
	questionHandler := question_handlers.NewQuestionHandler(db, quizService, aiClient, spacesClient)
	attemptHandler := attempt_handlers.NewAttemptHandler(db, quizService)
	adminUserHandler := admin_handlers.NewUserHandler(db)
	healthHandler := handlers.NewHealthHandler(store)

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    allowedOrigins,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoints (public)
	app.Get("/ping", healthHandler.Check)
	app.Get("/health", healthHandler.Check)

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)

	// Login with brute force protection
	if bruteForceProtection != nil {
		authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}

	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/me", authMiddleware.Required(), authHandler.Me)
	authGroup.Put("/me", authMiddleware.Required(), authHandler.UpdateMe)

	// Package catalog: public reads, admin writes
	packageGroup := api.Group("/packages")
	packageGroup.Get("/", packageHandler.ListPackages)
	packageGroup.Get("/:id", packageHandler.GetPackage)
	packageGroup.Post("/", authMiddleware.Required(), authMiddleware.RequireAdmin(), packageHandler.CreatePackage)
	packageGroup.Put("/:id", authMiddleware.Required(), authMiddleware.RequireAdmin(), packageHandler.UpdatePackage)
	packageGroup.Delete("/:id", authMiddleware.Required(), authMiddleware.RequireAdmin(), packageHandler.DeletePackage)

	// Invoice lifecycle
	invoiceGroup := api.Group("/invoices", authMiddleware.Required())
	invoiceGroup.Post("/", authMiddleware.RequireStudent(), invoiceHandler.CreateInvoice)
	invoiceGroup.Get("/", authMiddleware.RequireAdmin(), invoiceHandler.ListInvoices)
	invoiceGroup.Get("/mine", invoiceHandler.ListMine)
	invoiceGroup.Get("/:id", invoiceHandler.GetInvoice)
	invoiceGroup.Get("/:id/artifact", invoiceHandler.GetArtifact)
	invoiceGroup.Post("/:id/proof", authMiddleware.RequireStudent(), invoiceHandler.UploadProof)
	invoiceGroup.Put("/:id/confirm", authMiddleware.RequireAdmin(), invoiceHandler.Confirm)
	invoiceGroup.Put("/:id/reject", authMiddleware.RequireAdmin(), invoiceHandler.Reject)

	// Subscription status
	api.Get("/subscription", authMiddleware.Required(), statusHandler.Status)

	// Teaching slots. Reads are open to any signed-in user; booking is the
	// paid feature behind the subscription gate.
	slotGroup := api.Group("/slots", authMiddleware.Required())
	slotGroup.Get("/", slotHandler.ListSlots)
	slotGroup.Get("/mine", authMiddleware.RequireTeacher(), slotHandler.ListMine)
	slotGroup.Get("/booked", authMiddleware.RequireStudent(), slotHandler.ListBooked)
	slotGroup.Post("/", authMiddleware.RequireTeacher(), slotHandler.CreateSlot)
	slotGroup.Post("/recurring", authMiddleware.RequireTeacher(), slotHandler.CreateRecurring)
	slotGroup.Put("/:id/book", authMiddleware.RequireStudent(), subscriptionGate.RequireActive(), slotHandler.Book)
	slotGroup.Put("/:id/cancel", authMiddleware.RequireStudent(), slotHandler.Cancel)
	slotGroup.Put("/:id", authMiddleware.RequireTeacher(), slotHandler.UpdateSlot)
	slotGroup.Delete("/:id", authMiddleware.RequireTeacher(), slotHandler.DeleteSlot)

	// Question bank. Reading and attempting quizzes are paid features for
	// students; teachers author freely.
	questionPackageGroup := api.Group("/question-packages", authMiddleware.Required())
	questionPackageGroup.Get("/", questionHandler.ListPackages)
	questionPackageGroup.Get("/:id", subscriptionGate.RequireActive(), questionHandler.GetPackage)
	questionPackageGroup.Post("/", authMiddleware.RequireTeacher(), questionHandler.CreatePackage)
	questionPackageGroup.Put("/:id", authMiddleware.RequireTeacher(), questionHandler.UpdatePackage)
	questionPackageGroup.Delete("/:id", authMiddleware.RequireTeacher(), questionHandler.DeletePackage)
	questionPackageGroup.Post("/:id/questions", authMiddleware.RequireTeacher(), questionHandler.AddQuestion)
	questionPackageGroup.Post("/:id/generate", authMiddleware.RequireTeacher(), questionHandler.Generate)
	questionPackageGroup.Post("/:id/attempts", authMiddleware.RequireStudent(), subscriptionGate.RequireActive(), attemptHandler.Submit)
	questionPackageGroup.Get("/:id/attempts/mine", authMiddleware.RequireStudent(), attemptHandler.ListForPackage)

	questionGroup := api.Group("/questions", authMiddleware.Required(), authMiddleware.RequireTeacher())
	questionGroup.Put("/:id", questionHandler.UpdateQuestion)
	questionGroup.Delete("/:id", questionHandler.DeleteQuestion)
	questionGroup.Post("/:id/explanation-image", questionHandler.UploadExplanationImage)

	// Quiz attempt history across packages
	api.Get("/attempts/mine", authMiddleware.Required(), authMiddleware.RequireStudent(), attemptHandler.ListMine)

	// Admin user management
	adminGroup := api.Group("/admin", authMiddleware.Required(), authMiddleware.RequireAdmin())
	adminGroup.Get("/users", adminUserHandler.ListUsers)
	adminGroup.Post("/users", adminUserHandler.CreateStaff)
	adminGroup.Put("/users/:id/role", adminUserHandler.ChangeRole)
	adminGroup.Delete("/users/:id", adminUserHandler.DeleteUser)
}
