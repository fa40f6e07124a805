package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eventweb/assets"
	"eventweb/auth"
	"eventweb/config"
	"eventweb/db"
	"eventweb/events"
	"eventweb/logger"
	"eventweb/mailer"
	"eventweb/middleware"
	"eventweb/mq"
	"eventweb/ratelim"
	"eventweb/rdx"
	"eventweb/routes"
	"eventweb/templates"
	"eventweb/websites"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request method, path, status and duration.
func loggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// allowOrigin admits the configured frontend and any subdomain of the
// site domain, where published websites live.
func allowOrigin(cfg *config.Config) func(string) bool {
	return func(origin string) bool {
		if origin == cfg.App.FrontendURL {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := u.Hostname()
		return host == cfg.App.DomainName || strings.HasSuffix(host, "."+cfg.App.DomainName)
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (db.Store, error) {
	if cfg.App.StoreBackend == "memory" {
		log.Warn("using in-memory store; data is lost on restart")
		return db.NewMemoryStore(), nil
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Mongo.Timeout)
	defer cancel()
	return db.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, log)
}

func openRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := rdx.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Warn("redis unavailable; running without cache, denylist or lifecycle events", zap.Error(err))
		return nil
	}
	return client
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.Init(logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "eventweb",
		Development: !cfg.App.IsProduction(),
	})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	var (
		cache    rdx.Cache    = rdx.NopCache{}
		denylist rdx.Denylist = rdx.NopDenylist{}
		emitter  mq.Emitter   = mq.Nop{}
	)
	if client := openRedis(ctx, cfg, log); client != nil {
		defer client.Close()
		cache = rdx.NewRedisCache(client, rdx.PublicTTL)
		denylist = rdx.NewRedisDenylist(client)
		emitter = mq.NewRedisEmitter(client, log)
		go func() {
			err := mq.Subscribe(ctx, client, log, func(evt mq.LifecycleEvent) {
				log.Debug("lifecycle event",
					zap.String("type", evt.Type), zap.String("website_id", evt.WebsiteID), zap.String("event_id", evt.EventID))
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("lifecycle subscriber stopped", zap.Error(err))
			}
		}()
	}

	disk := assets.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.PublicBaseURL, cfg.Uploads.MaxBytes)
	am := assets.NewManager(disk, cfg.Uploads.ProtectedAssets, log.Named("assets"))
	notifier := &mailer.SMTP{
		Host:     cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Address,
		Password: cfg.SMTP.Password,
	}
	tokens := middleware.NewTokens(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL).WithDenylist(denylist)

	handlers := routes.Handlers{
		Auth:      auth.NewHandler(auth.NewService(store, tokens, log.Named("auth"))),
		Events:    events.NewHandler(events.NewService(store, cache, emitter, log.Named("events"))),
		Templates: templates.NewHandler(templates.NewService(store, log.Named("templates"))),
		Websites: websites.NewHandler(websites.NewService(websites.Config{
			DomainName:  cfg.App.DomainName,
			Secure:      cfg.App.IsProduction(),
			OfficeEmail: cfg.SMTP.Address,
		}, store, am, cache, emitter, notifier, log.Named("websites"))),
	}

	rateLimiter := ratelim.NewRateLimiter(60, 20)
	go rateLimiter.Run(ctx.Done())

	router := httprouter.New()
	router.GET("/health", Index)
	routes.AddStaticRoutes(router, disk.URLPrefix(), disk.Root())
	routes.RoutesWrapper(router, handlers, tokens, rateLimiter)

	corsHandler := cors.New(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           loggingMiddleware(log, securityHeaders(corsHandler)),
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr), zap.String("env", cfg.App.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
