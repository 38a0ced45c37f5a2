package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Ananth-NQI/vfa-backend/database"
	"github.com/Ananth-NQI/vfa-backend/internal/handlers"
	"github.com/Ananth-NQI/vfa-backend/internal/jobs"
	"github.com/Ananth-NQI/vfa-backend/internal/routes"
	"github.com/Ananth-NQI/vfa-backend/internal/services"
	"github.com/Ananth-NQI/vfa-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Initialize storage
	var store storage.Store
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		db, err := database.Connect()
		if err != nil {
			log.Fatal(err)
		}

		dbStore := storage.NewDatabaseStore(db)
		log.Println("🔄 Running database migrations...")
		if err := dbStore.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")
		store = dbStore
	}

	beneficiaries, err := storage.LoadBeneficiaries(getEnv("BENEFICIARIES_FILE", "data/beneficiaries.json"))
	if err != nil {
		log.Printf("⚠️  Beneficiary directory not loaded: %v", err)
	} else if err := store.SeedBeneficiaries(context.Background(), beneficiaries); err != nil {
		log.Fatal("Failed to seed beneficiaries:", err)
	} else {
		log.Printf("✅ Loaded %d beneficiaries", len(beneficiaries))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewMetrics(registry)

	textService := buildTextService(metrics)
	log.Printf("🧠 Text service: %s", textService.Provider())

	// Delivery channels
	var notifiers []services.Notifier
	var replies handlers.ReplySender
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - OTPs will only be logged: %v", err)
	} else {
		log.Println("✅ Twilio service initialized")
		notifiers = append(notifiers, twilioService)
		replies = twilioService
	}
	notifiers = append(notifiers, services.LogNotifier{})
	templates := services.NewTemplateService(notifiers...)

	// Services
	otpService := services.NewOTPService(store, getDuration("OTP_TTL", 0))
	ledger := services.NewLedgerService(store)
	flow := services.NewTransferFlow(services.TransferFlowDeps{
		Extractor: textService,
		Resolver:  services.NewBeneficiaryResolver(store),
		OTP:       otpService,
		Ledger:    ledger,
		Sender:    templates,
		Metrics:   metrics,
	})

	transactions, faqs, offers := services.LoadTaskData(
		getEnv("TRANSACTIONS_FILE", "data/transactions.yaml"),
		getEnv("FAQ_FILE", "data/faq.yaml"),
		getEnv("OFFERS_FILE", "data/offers.yaml"),
	)

	sessions := services.NewSessionManager(getDuration("SESSION_IDLE_TTL", 0))
	conversations := services.NewConversationService(services.ConversationDeps{
		Store:    store,
		Sessions: sessions,
		Text:     textService,
		Flow:     flow,
		Spend:    services.NewSpendHandler(transactions, textService),
		FAQ:      services.NewFAQHandler(faqs),
		Offers:   services.NewOffersHandler(offers),
		Metrics:  metrics,
		Timeout:  getDuration("COLLABORATOR_TIMEOUT", 0),
	})

	housekeeping := jobs.NewHousekeepingJob(otpService, sessions, 5*time.Minute)
	housekeeping.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "VFA Backend v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	var whatsapp *handlers.WhatsAppHandler
	if replies != nil {
		whatsapp = handlers.NewWhatsAppHandler(conversations, replies)
	}

	routes.SetupRoutes(app, routes.Config{
		Version:          version,
		Chat:             handlers.NewChatHandler(conversations, ledger),
		Health:           handlers.NewHealthHandler(version, getStorageType(), textService.Provider(), store, sessions),
		WhatsApp:         whatsapp,
		Admin:            handlers.NewAdminHandler(sessions, store),
		AdminAPIKey:      os.Getenv("ADMIN_API_KEY"),
		Gatherer:         registry,
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		ValidateWebhooks: os.Getenv("ENVIRONMENT") != "development" && os.Getenv("DISABLE_WEBHOOK_VALIDATION") != "true",
	})

	port := getEnv("PORT", "8080")

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping housekeeping job...")
		housekeeping.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 VFA Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("📱 WhatsApp: %s", getWhatsAppStatus(replies != nil))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// buildTextService picks the model backend named by TEXT_SERVICE_PROVIDER
// and wraps it with the keyword heuristics.
func buildTextService(metrics *services.Metrics) *services.FallbackTextService {
	heuristic := services.NewKeywordTextService()
	timeout := getDuration("TEXT_SERVICE_TIMEOUT", 0)

	switch provider := getEnv("TEXT_SERVICE_PROVIDER", "ollama"); provider {
	case "ollama":
		return services.NewFallbackTextService(services.NewOllamaTextService("", ""), heuristic, provider, timeout, metrics)
	case "openai":
		openAI, err := services.NewOpenAITextService("", "")
		if err != nil {
			log.Printf("⚠️  OpenAI unavailable, using heuristics: %v", err)
			return services.NewFallbackTextService(nil, heuristic, provider, timeout, metrics)
		}
		return services.NewFallbackTextService(openAI, heuristic, provider, timeout, metrics)
	case "heuristic":
		return services.NewFallbackTextService(nil, heuristic, provider, timeout, metrics)
	default:
		log.Printf("⚠️  Unknown TEXT_SERVICE_PROVIDER %q, using heuristics", provider)
		return services.NewFallbackTextService(nil, heuristic, provider, timeout, metrics)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s %q: %v", key, raw, err)
		return fallback
	}
	return d
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getWhatsAppStatus(configured bool) string {
	if !configured {
		return "Not configured"
	}
	return "Configured"
}
