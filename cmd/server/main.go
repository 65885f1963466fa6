package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/optionfolio/backend/internal/api"
	"github.com/optionfolio/backend/internal/config"
	"github.com/optionfolio/backend/internal/database"
	"github.com/optionfolio/backend/internal/pricefeed"
	"github.com/optionfolio/backend/internal/repository"
	"github.com/optionfolio/backend/internal/scheduler"
	"github.com/optionfolio/backend/internal/secrets"
	"github.com/optionfolio/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	grantRepo := repository.NewGrantRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	evolutionRepo := repository.NewEvolutionRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Secrets encryption is optional; without a key, stored secrets are plain.
	var encryptor *secrets.Encryptor
	if cfg.Secrets.FernetKey != "" {
		encryptor, err = secrets.NewEncryptor(cfg.Secrets.FernetKey)
		if err != nil {
			log.Fatalf("Failed to initialize secrets encryption: %v", err)
		}
	}

	// Create services
	settingService := service.NewSettingService(settingRepo, encryptor)
	taxAllocator := service.NewTaxAllocator()
	evolutionService := service.NewEvolutionService(db, evolutionRepo, grantRepo, saleRepo, priceRepo, settingRepo)
	grantService := service.NewGrantService(db, grantRepo, saleRepo, priceRepo, evolutionService, settingService, taxAllocator)
	saleService := service.NewSaleService(db, saleRepo, grantRepo, evolutionService, settingService, taxAllocator)
	overviewService := service.NewOverviewService(grantRepo, saleRepo, priceRepo, settingService)
	systemService := service.NewSystemService(db)

	// The price feed is optional; without a provider URL the refresh and
	// backfill endpoints report an error while everything else works.
	var feed pricefeed.Client
	if cfg.PriceFeed.BaseURL != "" {
		token, err := settingService.PriceFeedToken()
		if err != nil {
			log.Fatalf("Failed to read price feed token: %v", err)
		}
		feed = pricefeed.NewHTTPClient(cfg.PriceFeed.BaseURL, token)
	}
	listings := pricefeed.NewListingCache(time.Duration(cfg.PriceFeed.CacheTTLMinutes) * time.Minute)
	priceService := service.NewPriceService(db, priceRepo, grantRepo, evolutionService, feed, listings)

	// Scheduled price refresh
	if feed != nil {
		sched, err := scheduler.New(priceService, cfg.PriceFeed.RefreshSchedule)
		if err != nil {
			log.Fatalf("Failed to create scheduler: %v", err)
		}
		sched.Start()
		defer sched.Stop()
		log.Printf("Scheduled price refresh: %s", cfg.PriceFeed.RefreshSchedule)
	}

	// Create router
	router := api.NewRouter(api.Services{
		System:    systemService,
		Grant:     grantService,
		Sale:      saleService,
		Price:     priceService,
		Overview:  overviewService,
		Evolution: evolutionService,
		Setting:   settingService,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
