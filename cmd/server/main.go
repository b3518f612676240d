package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/term"

	"debtplan/internal/config"
	"debtplan/internal/handlers/backup"
	"debtplan/internal/handlers/calculator"
	intakehandlers "debtplan/internal/handlers/intake"
	"debtplan/internal/services/cache"
	"debtplan/internal/services/intake"
	"debtplan/internal/services/metrics"
	"debtplan/internal/services/retention"
	"debtplan/internal/services/storage"
	"debtplan/internal/templates"
	"debtplan/internal/version"
)

var (
	cfg          *config.Config
	store        *storage.Storage
	renderer     *templates.Renderer
	repo         intake.Repository
	retentionJob *retention.Job
)

func main() {
	info := version.Get()
	log.Printf("debtplan %s", info)
	if warning := info.Check(); warning != "" {
		log.Println(warning)
	}

	configPath := os.Getenv("DEBTPLAN_CONFIG")
	if configPath == "" {
		configPath = "debtplan.yaml"
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Starting debtplan on %s", cfg.ListenAddr)
	log.Printf("Data directory: %s", cfg.DataDirectory)

	store, err = storage.New(cfg.DataDirectory)
	if err != nil {
		log.Fatalf("Error opening data directory: %v", err)
	}
	unlockAtStartup(store)

	if err := SetupDependencies(cfg); err != nil {
		log.Fatalf("Error setting up dependencies: %v", err)
	}
	defer repo.Close()

	retentionJob.Start()
	defer retentionJob.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}

// unlockAtStartup unlocks an encrypted data directory from DEBTPLAN_PASSWORD
// or, on a terminal, from a prompt. Otherwise the server starts locked and
// waits for POST /api/unlock.
func unlockAtStartup(s *storage.Storage) {
	if !s.IsEncrypted() {
		return
	}

	password := os.Getenv("DEBTPLAN_PASSWORD")
	if password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Data directory password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			log.Printf("Error reading password: %v", err)
			return
		}
		password = string(raw)
	}
	if password == "" {
		log.Println("Data directory is encrypted and locked; POST /api/unlock to open it")
		return
	}

	if err := s.Unlock(password); err != nil {
		log.Printf("Could not unlock data directory: %v", err)
		return
	}
	log.Println("Data directory unlocked")
}

// SetupDependencies wires services and handler packages from c. The package
// store must already be opened.
func SetupDependencies(c *config.Config) error {
	cfg = c
	if store == nil {
		var err error
		if store, err = storage.New(c.DataDirectory); err != nil {
			return fmt.Errorf("open data directory: %w", err)
		}
	}

	var err error
	renderer, err = templates.New(c.TemplatesDirectory, c.Debug)
	if err != nil {
		log.Printf("Warning: could not load templates: %v", err)
		renderer = nil
	}

	repo, err = intake.Open(c.Intake.Driver, c.Intake.DSN, store)
	if err != nil {
		return fmt.Errorf("open intake repository: %w", err)
	}

	retentionJob, err = retention.New(repo, c.Retention.Days, c.Retention.Schedule)
	if err != nil {
		return err
	}

	resultCache := newCache(c)

	calculator.Initialize(renderer, c, resultCache)
	intakehandlers.Initialize(renderer, repo, metrics.New(c.Calculator.MinimumPaymentFloor), c)
	backup.Initialize(c, store, repo)
	return nil
}

// newCache uses Redis when configured and reachable, memory otherwise
func newCache(c *config.Config) cache.Cache {
	if c.Cache.RedisAddr == "" {
		return cache.NewMemoryCache(0)
	}

	rc := cache.NewRedisCache(c.Cache.RedisAddr)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		log.Printf("Warning: Redis at %s unavailable, using in-memory cache: %v", c.Cache.RedisAddr, err)
		rc.Close()
		return cache.NewMemoryCache(0)
	}
	log.Printf("Caching payoff results in Redis at %s", c.Cache.RedisAddr)
	return rc
}

// SetupRouter builds the HTTP routes
func SetupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	fileServer := http.FileServer(http.Dir(cfg.StaticDirectory))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	r.Get("/static/plotly.min.js", backup.HandlePlotly)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calculator", http.StatusTemporaryRedirect)
	})

	calculator.RegisterRoutes(r)
	intakehandlers.RegisterRoutes(r)

	r.Get("/api/health", backup.HandleHealth)
	r.Get("/api/backup", backup.HandleBackup)
	r.Post("/api/restore", backup.HandleRestore)
	r.Post("/api/unlock", backup.HandleUnlock)
	r.Post("/api/lock", backup.HandleLock)

	return r
}
