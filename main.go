package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icodeDev93/telegram-challenge-bot/handlers"
	"github.com/icodeDev93/telegram-challenge-bot/internal/session"
	"github.com/icodeDev93/telegram-challenge-bot/internal/sheets"
	"github.com/icodeDev93/telegram-challenge-bot/internal/telegram"
	"github.com/icodeDev93/telegram-challenge-bot/middleware"
	"github.com/icodeDev93/telegram-challenge-bot/services"
)

const defaultChannelURL = "https://t.me/deepfunding"

var (
	dbPool       *pgxpool.Pool
	tgClient     *telegram.Client
	sheetsClient *sheets.Client
	sessionStore session.Store
	botService   *services.BotService
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_TOKEN environment variable is not set")
	}

	sheetID := os.Getenv("SHEET_ID")
	if sheetID == "" {
		log.Fatal("SHEET_ID environment variable is not set")
	}
	folderID := os.Getenv("FOLDER_ID")

	creds, err := sheets.Credentials(os.Getenv("GOOGLE_CREDS_JSON"), os.Getenv("GOOGLE_CREDS"))
	if err != nil {
		log.Fatal("Failed to load Google credentials: ", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sheetsClient, err = sheets.NewClient(ctx, sheetID, folderID, creds)
	if err != nil {
		log.Fatal("Failed to initialize sheets client: ", err)
	}
	log.Println("Sheets and Drive clients initialized successfully")

	tgClient = telegram.NewClient(token)

	// Sessions default to process memory. With DATABASE_URL set they
	// survive restarts instead.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbPool, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatal("Failed to create connection pool: ", err)
		}
		if err := dbPool.Ping(ctx); err != nil {
			log.Fatal("Failed to ping database: ", err)
		}
		sessionStore, err = session.NewPostgresStore(ctx, dbPool)
		if err != nil {
			log.Fatal("Failed to initialize session store: ", err)
		}
		log.Println("Using Postgres session store")
	} else {
		sessionStore = session.NewMemoryStore()
		log.Println("Using in-memory session store")
	}

	channelURL := os.Getenv("CHANNEL_URL")
	if channelURL == "" {
		channelURL = defaultChannelURL
	}

	botService = services.NewBotService(tgClient, sheetsClient, sessionStore, channelURL)

	middleware.InitPrometheus()
	services.InitMetrics()
}

func main() {
	defer func() {
		if dbPool != nil {
			log.Println("Closing database connection pool...")
			dbPool.Close()
		}
	}()

	registerWebhook()

	webhookSecret := os.Getenv("WEBHOOK_SECRET")
	webhookHandler := handlers.NewWebhookHandler(botService, webhookSecret)

	r := mux.NewRouter()

	go middleware.CleanupVisitors()

	r.Use(middleware.RateLimitMiddleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))

	r.HandleFunc("/", handlers.HealthCheck).Methods("GET")
	r.HandleFunc("/webhook", webhookHandler.HandleTelegramWebhook).Methods("POST")
	r.HandleFunc("/webhook/{secret}", webhookHandler.HandleTelegramWebhook).Methods("POST")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins([]string{"*"}),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// registerWebhook points Telegram at this deployment. Errors are logged
// and not fatal; the operator can re-run registration manually.
func registerWebhook() {
	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		log.Println("WEBHOOK_URL not set, webhook not configured")
		return
	}

	if secret := os.Getenv("WEBHOOK_SECRET"); secret != "" {
		webhookURL = strings.TrimRight(webhookURL, "/") + "/" + secret
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tgClient.DeleteWebhook(ctx); err != nil {
		log.Printf("Failed to remove old webhook: %v", err)
	}
	if err := tgClient.SetWebhook(ctx, webhookURL); err != nil {
		log.Printf("Failed to set webhook: %v", err)
		return
	}
	log.Printf("Webhook set to %s", webhookURL)
}
