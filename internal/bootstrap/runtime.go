// Package bootstrap connects the process-wide dependencies described by the
// configuration: database, Redis, identity verification and blob storage.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yogull/yogull-social-platform-sub001/internal/blobstore"
	"github.com/yogull/yogull-social-platform-sub001/internal/cache"
	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/database"
	"github.com/yogull/yogull-social-platform-sub001/internal/identity"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// Migrate runs the schema migration after connecting.
	Migrate bool
	// SkipRedis leaves Redis unset; caching and realtime become no-ops.
	SkipRedis bool
}

// Runtime holds the connected dependencies.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Firebase *firebase.App
	Verifier identity.TokenVerifier
	Blobs    blobstore.Store
}

// InitRuntime connects to the database and Redis, then builds the configured
// token verifier and blob store.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if opts.Migrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("migration failed: %w", err)
		}
	}

	rt := &Runtime{DB: db}
	if !opts.SkipRedis {
		// InitRedis returns nil when Redis is unreachable.
		rt.Redis = cache.InitRedis(cfg.RedisURL)
	}

	if needsFirebase(cfg) {
		rt.Firebase, err = NewFirebaseApp(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, err
		}
	}

	rt.Verifier, err = NewVerifier(ctx, cfg, rt.Firebase)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Blobs, err = blobstore.New(ctx, blobstore.Options{
		Backend:  cfg.BlobStore,
		DiskDir:  cfg.BlobDiskDir,
		Bucket:   cfg.FirebaseStorageBucket,
		Firebase: rt.Firebase,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("blob store: %w", err)
	}

	middleware.Logger.Info("runtime initialized",
		slog.String("db_driver", cfg.DBDriver),
		slog.Bool("redis", rt.Redis != nil),
		slog.String("auth_provider", cfg.AuthProvider),
		slog.String("blob_store", rt.Blobs.Name()))
	return rt, nil
}

// Close releases the database and Redis connections.
func (rt *Runtime) Close() {
	if rt.DB != nil {
		if err := database.Close(rt.DB); err != nil {
			middleware.Logger.Warn("error closing database", slog.String("error", err.Error()))
		}
	}
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			middleware.Logger.Warn("error closing redis", slog.String("error", err.Error()))
		}
	}
}

func needsFirebase(cfg *config.Config) bool {
	return cfg.AuthProvider == "firebase" || cfg.BlobStore == blobstore.BackendFirebase
}

// NewFirebaseApp initializes the Firebase Admin SDK from inline JSON
// credentials, a credentials file, or application default credentials.
func NewFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.FirebaseCredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	case cfg.FirebaseCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	fbConfig := &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	if cfg.FirebaseStorageBucket != "" {
		fbConfig.StorageBucket = cfg.FirebaseStorageBucket
	}
	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	return app, nil
}

// NewVerifier returns the token verifier selected by AUTH_PROVIDER.
func NewVerifier(ctx context.Context, cfg *config.Config, app *firebase.App) (identity.TokenVerifier, error) {
	switch cfg.AuthProvider {
	case "", "jwt":
		return identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience), nil
	case "firebase":
		if app == nil {
			return nil, fmt.Errorf("firebase auth requires a firebase app")
		}
		client, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		return identity.NewFirebaseVerifier(client), nil
	}
	return nil, fmt.Errorf("unknown auth provider %q", cfg.AuthProvider)
}
