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

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"gurukul-booking/gcal"
	"gurukul-booking/schedule"
)

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Service string `json:"service"`
}

const VERSION = "1.0.0"

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("Starting Gurukul Booking Server...")

	cfg, err := loadCalendarConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Calendar ID: %s", cfg.CalendarID)
	log.Printf("Scheduling timezone: %s", cfg.TimeZone)

	ctx := context.Background()
	gateway, err := gcal.NewGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Google Calendar client: %v", err)
	}

	// Verify delegation before accepting traffic; a misconfigured service
	// account should fail the process, not the first booking.
	if err := gateway.CheckAccess(ctx); err != nil {
		log.Printf("Google Calendar access check failed: %v", err)
		log.Fatal("Check that domain-wide delegation is configured for the service account client ID with the calendar scope")
	}
	log.Println("Google Calendar connection successful")
	log.Println("2-hour minimum booking buffer enabled")

	r := mux.NewRouter()

	// Health check endpoint
	r.HandleFunc("/healthz", healthHandler).Methods("GET")
	r.HandleFunc("/", rootHandler).Methods("GET")

	registerAvailabilityRoutes(r, gateway, schedule.DefaultWindows, gateway.Location())
	registerBookingRoutes(r, gateway, gateway.Location())

	// CORS for the browser front-end
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	// Configure server
	port := getEnv("PORT", "5000")
	srv := &http.Server{
		Handler:      cors(r),
		Addr:         "0.0.0.0:" + port,
		WriteTimeout: 180 * time.Second,
		ReadTimeout:  180 * time.Second,
	}

	log.Printf("Gurukul Booking Server v%s starting on %s", VERSION, srv.Addr)

	// Setup graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// loadCalendarConfig assembles the calendar gateway configuration from the
// environment. Credentials come inline via SERVICE_ACCOUNT_JSON or from the
// file named by SERVICE_ACCOUNT_FILE.
func loadCalendarConfig() (gcal.Config, error) {
	cfg := gcal.Config{
		CalendarID: os.Getenv("CALENDAR_ID"),
		Subject:    getEnv("IMPERSONATE_SUBJECT", "admin@pythongurukul.com"),
		TimeZone:   getEnv("SCHEDULE_TIMEZONE", "Asia/Kolkata"),
	}
	if cfg.CalendarID == "" {
		return gcal.Config{}, errors.New("CALENDAR_ID environment variable is required")
	}

	if inline := os.Getenv("SERVICE_ACCOUNT_JSON"); inline != "" {
		cfg.CredentialsJSON = []byte(inline)
		return cfg, nil
	}

	path := os.Getenv("SERVICE_ACCOUNT_FILE")
	if path == "" {
		return gcal.Config{}, errors.New("SERVICE_ACCOUNT_JSON or SERVICE_ACCOUNT_FILE environment variable is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return gcal.Config{}, err
	}
	cfg.CredentialsJSON = data
	return cfg, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:      true,
		Version: VERSION,
		Service: "gurukul-booking",
	})
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Gurukul Python Booking API Server",
		"version": VERSION,
	})
}

// Helper function to get environment variable with default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
