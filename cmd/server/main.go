// @title         accounts-service API
// @version       1.0
// @description   User accounts: registration, login, session tokens and user administration.
// @BasePath      /api
// @schemes       http
// @host          localhost:8080
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Session token. Accepted as "Bearer <JWT>" or "<JWT>"; browsers send the jwt cookie instead.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	swagger "github.com/gofiber/swagger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	_ "github.com/artem13815/accounts/docs"

	// internal imports
	httpapi "github.com/artem13815/accounts/api/http"
	"github.com/artem13815/accounts/api/http/handlers"
	"github.com/artem13815/accounts/pkg/auth"
	memcache "github.com/artem13815/accounts/pkg/cache/memory"
	rediscache "github.com/artem13815/accounts/pkg/cache/redis"
	"github.com/artem13815/accounts/pkg/config"
	"github.com/artem13815/accounts/pkg/health"
	"github.com/artem13815/accounts/pkg/health/checkers"
	"github.com/artem13815/accounts/pkg/logging"
	"github.com/artem13815/accounts/pkg/metrics"
	pgrepo "github.com/artem13815/accounts/pkg/repository/postgres"
	sqliterepo "github.com/artem13815/accounts/pkg/repository/sqlite"
	"github.com/artem13815/accounts/pkg/security/jwt"
	"github.com/artem13815/accounts/pkg/security/password"
	"github.com/artem13815/accounts/pkg/storage/postgres"
	"github.com/artem13815/accounts/pkg/storage/sqlite"
	"github.com/artem13815/accounts/pkg/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration from defaults, CONFIG_FILE, env/.env
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	var (
		repo      auth.UserRepository
		readiness []health.Checker
	)
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("sqlite open")
		}
		defer db.Close()
		if err := sqlite.Migrate(ctx, db); err != nil {
			log.WithError(err).Fatal("sqlite migrate")
		}
		repo = sqliterepo.NewUserRepository(db)
		readiness = append(readiness, checkers.NewSQLChecker("sqlite", db))
	default:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("postgres connect")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.WithError(err).Fatal("postgres migrate")
		}
		repo = pgrepo.NewUserRepository(pool)
		readiness = append(readiness, checkers.NewPostgresChecker(pool))
	}

	// Security primitives
	hasher, err := password.NewBcryptHasher(cfg.BcryptCost)
	if err != nil {
		log.WithError(err).Fatal("password hasher")
	}
	codec, err := jwt.NewCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL())
	if err != nil {
		log.WithError(err).Fatal("token codec")
	}

	// Identity resolution, optionally cached
	var (
		resolver    auth.IdentityResolver    = auth.NewRepositoryResolver(repo)
		invalidator auth.IdentityInvalidator = auth.NopInvalidator{}
	)
	switch cfg.Cache.Mode {
	case config.CacheMemory:
		c := memcache.NewIdentityCache(resolver, cfg.Cache.Size, cfg.Cache.TTL)
		resolver, invalidator = c, c
	case config.CacheRedis:
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("redis connect")
		}
		defer client.Close()
		c := rediscache.NewIdentityCache(client, resolver, cfg.Cache.TTL, log)
		resolver, invalidator = c, c
		readiness = append(readiness, checkers.NewRedisChecker(client))
	}

	// Use cases
	authOpts := []auth.Option{auth.WithLogger(log)}
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		authOpts = append(authOpts, auth.WithMetrics(m))
	}
	authUC := auth.NewAuthService(repo, hasher, codec, authOpts...)
	usersUC := users.NewService(repo, hasher, invalidator, log)

	if cfg.Admin.Enabled() {
		admin, err := usersUC.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.WithError(err).Fatal("bootstrap admin")
		}
		if admin.IsAdmin {
			log.WithField("user_id", admin.ID).Info("admin account ready")
		}
	}

	// HTTP
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logging.Middleware(log))
	if m != nil {
		app.Use(m.Middleware())
		app.Get("/metrics", m.Handler())
	}

	cookie := jwt.CookieConfig{Name: cfg.Cookie.Name, Secure: cfg.Cookie.Secure, SameSite: cfg.Cookie.SameSite}
	httpapi.Register(app,
		handlers.NewUsersHandler(authUC, usersUC, cookie, log),
		handlers.NewHealthHandler(health.NewService(readiness...)),
		httpapi.Gates{
			Authenticated: jwt.NewAuthMiddleware(codec, resolver, cookie, log),
			Admin:         jwt.RequireAdmin(),
		},
	)

	if cfg.SwaggerEnabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
