package router

import (
	"errors"
	"fmt"
	"time"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/anonto42/mindhaven/backend/internal/auth"
	"github.com/anonto42/mindhaven/backend/internal/events"
	"github.com/anonto42/mindhaven/backend/internal/handlers"
	"github.com/anonto42/mindhaven/backend/internal/mailer"
	"github.com/anonto42/mindhaven/backend/internal/middleware"
	"github.com/anonto42/mindhaven/backend/internal/models"
	"github.com/anonto42/mindhaven/backend/internal/payments"
	"github.com/anonto42/mindhaven/backend/internal/ratelimit"
	"github.com/anonto42/mindhaven/backend/internal/repositories"
	"github.com/anonto42/mindhaven/backend/internal/services"
	"github.com/anonto42/mindhaven/backend/pkg/config"
	"github.com/labstack/echo/v4"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Deps are the connections opened in main. Mongo, Redis and FirebaseAuth
// may be nil; the matching fallback is used instead.
type Deps struct {
	Config       *config.Config
	Log          *logrus.Logger
	Postgres     *gorm.DB
	Mongo        *mongo.Client
	Redis        *redis.Client
	FirebaseAuth *firebaseauth.Client
	Publisher    events.Publisher
}

// SetupRoutes migrates the schema, builds repositories and services, and
// registers every route.
func SetupRoutes(e *echo.Echo, d Deps) error {
	cfg, log := d.Config, d.Log

	err := d.Postgres.AutoMigrate(
		&models.Profile{},
		&models.BuddyMatch{},
		&models.Notification{},
		&models.Subscription{},
		&models.AccessResetToken{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("PostgreSQL auto-migrations completed")

	sqlDB, err := d.Postgres.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	// --- Initialize Repositories ---
	profileRepo := repositories.NewPostgresProfileRepository(d.Postgres)
	matchRepo := repositories.NewPostgresBuddyMatchRepository(d.Postgres)
	notificationRepo := repositories.NewPostgresNotificationRepository(d.Postgres)
	subscriptionRepo := repositories.NewPostgresSubscriptionRepository(d.Postgres)
	resetTokenRepo := repositories.NewPostgresAccessResetTokenRepository(d.Postgres)

	var auditRepo repositories.MatchEventRepository = repositories.NopMatchEventRepository{}
	if d.Mongo != nil {
		auditRepo = repositories.NewMongoMatchEventRepository(d.Mongo.Database(cfg.MongoDatabase))
	}

	var idTokens auth.IDTokenVerifier
	if d.FirebaseAuth != nil {
		idTokens = d.FirebaseAuth
	}
	verifier, err := buildVerifier(cfg, idTokens, profileRepo)
	if err != nil {
		return err
	}

	// --- Services ---
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	matchService := services.NewBuddyMatchService(matchRepo, profileRepo, notificationRepo, auditRepo, publisher, log, cfg.MatchCandidateLimit)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, profileRepo, buildProvider(cfg, log), log)
	resetService := services.NewAccessResetService(
		resetTokenRepo,
		profileRepo,
		buildLimiter(cfg, d.Redis),
		buildMailer(cfg, log),
		log,
		cfg.SiteURL,
		cfg.ResetTokenTTL,
	)

	e.Use(middleware.Metrics())

	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(sqlDB).HealthCheck)

	// --- Unprotected routes ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAccessResetHandler(resetService).RegisterAccessResetRoutes(authGroup)

	// --- Protected routes ---
	api := e.Group("/api/v1", middleware.Authenticate(verifier))
	log.WithField("provider", cfg.AuthProvider).Info("bearer authentication applied to /api/v1 group")

	handlers.NewBuddyMatchHandler(matchService).RegisterBuddyMatchRoutes(api)
	handlers.NewNotificationHandler(notificationRepo, profileRepo).RegisterNotificationRoutes(api)
	handlers.NewSubscriptionHandler(subscriptionService).RegisterSubscriptionRoutes(api)
	handlers.NewProfileHandler(profileRepo).RegisterProfileRoutes(api)

	log.Info("All routes configured")
	return nil
}

func buildVerifier(cfg *config.Config, firebaseAuth auth.IDTokenVerifier, profiles repositories.ProfileRepository) (auth.TokenVerifier, error) {
	switch cfg.AuthProvider {
	case config.AuthProviderFirebase:
		if firebaseAuth == nil {
			return nil, errors.New("AUTH_PROVIDER=firebase but no Firebase auth client")
		}
		return auth.NewFirebaseVerifier(firebaseAuth, profiles), nil
	case config.AuthProviderJWT:
		if cfg.JWTSecret == "" {
			return nil, errors.New("JWT_SECRET environment variable not set")
		}
		return auth.NewJWTVerifier(cfg.JWTSecret), nil
	default:
		return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
	}
}

func buildLimiter(cfg *config.Config, client *redis.Client) ratelimit.Limiter {
	if client != nil {
		return ratelimit.NewRedisLimiter(client, "ratelimit:access_reset", cfg.ResetRequestsPerHour, time.Hour)
	}
	return ratelimit.NewMemoryLimiter(cfg.ResetRequestsPerHour, time.Hour)
}

func buildMailer(cfg *config.Config, log *logrus.Logger) mailer.Mailer {
	if cfg.ResendAPIKey == "" {
		log.Warn("RESEND_API_KEY not set, reset emails are logged instead of sent")
		return mailer.NewLogMailer(log)
	}
	return mailer.NewResendMailer(cfg.ResendAPIKey, cfg.EmailFrom)
}

func buildProvider(cfg *config.Config, log *logrus.Logger) payments.SubscriptionProvider {
	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY not set, users without a local subscription resolve to free")
		return payments.NopProvider{}
	}
	return payments.NewStripeProvider(cfg.StripeSecretKey)
}
