// Package bootstrap connects the stores and buses named in the configuration
// and wires the service graph on top of them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"socialhub/internal/cache"
	"socialhub/internal/config"
	"socialhub/internal/database"
	"socialhub/internal/featureflags"
	"socialhub/internal/middleware"
	"socialhub/internal/notifications"
	"socialhub/internal/repository"
	"socialhub/internal/retry"
	"socialhub/internal/seed"
	"socialhub/internal/service"

	firebase "firebase.google.com/go/v4"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedScenario, when set, is applied after the schema in development.
	SeedScenario string
	// SkipRealtime leaves out the socket hub and bus publishers, for CLI use.
	SkipRealtime bool
}

// Services is the wired service graph.
type Services struct {
	Identity      *service.IdentityService
	Graph         *service.GraphService
	Content       *service.ContentService
	Engagement    *service.EngagementService
	Notifications *service.NotificationService
	Feed          *service.FeedService
	Saved         *service.SavedService
}

// Runtime owns every external connection for the life of the process.
type Runtime struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
	NATS     *nats.Conn
	Flags    *featureflags.Manager
	Verifier middleware.TokenVerifier

	Presence *notifications.Presence
	Hub      *notifications.Hub
	Notifier *notifications.Notifier

	Services Services
}

// RetryPolicy builds the store call policy from configuration.
func RetryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		CallTimeout: cfg.StoreCallTimeout(),
		MaxAttempts: cfg.StoreRetryMaxAttempts,
		Initial:     time.Duration(cfg.StoreRetryInitialMS) * time.Millisecond,
		Max:         time.Duration(cfg.StoreRetryMaxMS) * time.Millisecond,
	}
}

// InitRuntime connects the database, Redis and optional stores and buses,
// then wires the services. Redis, NATS and Mongo failures are fatal only when
// the configuration requires them.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Config: cfg,
		Flags:  featureflags.NewManager(cfg.FeatureFlags),
	}

	if unknown := rt.Flags.Unknown(); len(unknown) > 0 {
		slog.Warn("FEATURE_FLAGS names flags the service does not read", "flags", unknown)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	// Redis may come back nil; the cache and fan-out then degrade to no-ops
	cache.InitRedis(cfg.RedisURL)
	rt.Redis = cache.GetClient()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	rt.Verifier = verifier

	stories, err := rt.storyRepository(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	var publishers []service.NotificationPublisher
	if !opts.SkipRealtime {
		publishers, err = rt.initRealtime(ctx)
		if err != nil {
			rt.Close(ctx)
			return nil, err
		}
	}

	rt.Services = NewServices(db, stories, rt.Flags, publishers, RetryPolicy(cfg))

	if opts.SeedScenario != "" && !cfg.IsProduction() {
		if err := rt.applyScenario(ctx, opts.SeedScenario); err != nil {
			rt.Close(ctx)
			return nil, err
		}
	}

	return rt, nil
}

// NewServices wires the service graph over a database handle.
func NewServices(
	db *gorm.DB,
	stories repository.StoryRepository,
	flags service.FlagSource,
	publishers []service.NotificationPublisher,
	policy retry.Policy,
) Services {
	if stories == nil {
		stories = repository.NewStoryRepository(db)
	}
	identities := repository.NewIdentityRepository(db)
	edges := repository.NewEdgeRepository(db)
	posts := repository.NewPostRepository(db)
	withPolicy := service.WithRetryPolicy(policy)

	notify := service.NewNotificationService(repository.NewNotificationRepository(db), identities, flags, publishers, withPolicy)
	content := service.NewContentService(posts, stories, edges, identities, withPolicy)

	return Services{
		Identity:      service.NewIdentityService(identities, withPolicy),
		Graph:         service.NewGraphService(edges, identities, notify, withPolicy),
		Content:       content,
		Engagement:    service.NewEngagementService(posts, repository.NewLikeRepository(db), repository.NewCommentRepository(db), identities, notify, withPolicy),
		Notifications: notify,
		Feed:          service.NewFeedService(posts, edges, identities, content, flags, withPolicy),
		Saved:         service.NewSavedService(repository.NewSavedRepository(db), posts, identities, withPolicy),
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (middleware.TokenVerifier, error) {
	switch cfg.IdentityProvider {
	case "firebase":
		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
		if err != nil {
			return nil, fmt.Errorf("firebase app init failed: %w", err)
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth init failed: %w", err)
		}
		return middleware.NewFirebaseVerifier(client), nil
	default:
		return middleware.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience), nil
	}
}

func (rt *Runtime) storyRepository(ctx context.Context) (repository.StoryRepository, error) {
	if rt.Config.StoryStore != "mongo" {
		return repository.NewStoryRepository(rt.DB), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(rt.Config.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect failed: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}
	rt.Mongo = client

	db := client.Database(rt.Config.MongoDatabase)
	if err := repository.EnsureStoryIndexes(connectCtx, db); err != nil {
		return nil, fmt.Errorf("mongo story indexes: %w", err)
	}
	slog.Info("story store: mongo", "database", rt.Config.MongoDatabase)
	return repository.NewMongoStoryRepository(db), nil
}

func (rt *Runtime) initRealtime(ctx context.Context) ([]service.NotificationPublisher, error) {
	var publishers []service.NotificationPublisher

	if rt.Redis != nil {
		rt.Presence = notifications.NewPresence(rt.Redis, notifications.PresenceConfig{})
		rt.Hub = notifications.NewHub(rt.Presence)
		rt.Notifier = notifications.NewNotifier(rt.Redis).WithPresence(rt.Presence)
		publishers = append(publishers, rt.Notifier)
	} else {
		// single instance: deliver straight to local sockets
		rt.Hub = notifications.NewHub(nil)
		publishers = append(publishers, rt.Hub)
	}

	if rt.Config.NATSURL != "" {
		nc, err := nats.Connect(rt.Config.NATSURL,
			nats.Name("socialhub"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("nats connect failed: %w", err)
		}
		rt.NATS = nc
		publishers = append(publishers, notifications.NewBusPublisher(nc, ""))
	}

	return publishers, nil
}

// StartRealtime starts forwarding Redis fan-out to local sockets.
func (rt *Runtime) StartRealtime(ctx context.Context) error {
	if rt.Hub == nil || rt.Notifier == nil {
		return nil
	}
	return rt.Hub.StartWiring(ctx, rt.Notifier)
}

func (rt *Runtime) applyScenario(ctx context.Context, path string) error {
	sc, err := seed.LoadScenarioFile(path)
	if err != nil {
		return err
	}
	s := rt.Services
	report, err := seed.NewSeeder(seed.Services{
		Identity:   s.Identity,
		Graph:      s.Graph,
		Content:    s.Content,
		Engagement: s.Engagement,
		Saved:      s.Saved,
	}, 0).ApplyScenario(ctx, sc)
	if err != nil {
		return fmt.Errorf("apply seed scenario %s: %w", path, err)
	}
	slog.Info("seed scenario applied", "path", path, "report", report.String())
	return nil
}

// Close releases every connection. It is safe on a partially built runtime.
func (rt *Runtime) Close(ctx context.Context) {
	var errs []error
	if rt.Hub != nil {
		errs = append(errs, rt.Hub.Shutdown(ctx))
	}
	if rt.NATS != nil {
		errs = append(errs, rt.NATS.Drain())
	}
	if rt.Mongo != nil {
		errs = append(errs, rt.Mongo.Disconnect(ctx))
	}
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	if rt.DB != nil {
		if sqlDB, err := rt.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Warn("runtime shutdown incomplete", "error", err)
	}
}
