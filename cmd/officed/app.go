package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/config"
	httptransport "github.com/example/office-planner/internal/http"
	"github.com/example/office-planner/internal/imagestore"
	"github.com/example/office-planner/internal/locking"
	"github.com/example/office-planner/internal/persistence/sqlite"
	"github.com/example/office-planner/internal/persistence/sqlite/migration"
	"github.com/example/office-planner/internal/placement"
	"github.com/example/office-planner/internal/recurrence"
)

const lockPrefix = "office:lock:"

// app holds the wired services of one process.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	storage *sqlite.Storage
	redis   *redis.Client

	desks        *application.DeskService
	employees    *application.EmployeeService
	skills       *application.SkillService
	gallery      *application.GalleryService
	reservations *application.ReservationService
	users        *application.UserService
	groups       *application.GroupService
	auth         *application.AuthService
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sqlite.Storage, error) {
	storage, err := sqlite.Open(migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return storage, nil
}

func placementRules(policy config.Policy) (application.PlacementRules, error) {
	adjacency, positions, groups, err := policy.Rules()
	if err != nil {
		return application.PlacementRules{}, err
	}
	return application.PlacementRules{
		Validator:   placement.NewValidator(adjacency),
		Positions:   positions,
		Groups:      groups,
		KeeperGroup: policy.KeeperGroup,
	}, nil
}

func newBlobStore(ctx context.Context, cfg config.Config) (application.BlobStore, error) {
	if cfg.ImageStore == "s3" {
		return imagestore.NewS3(ctx, imagestore.S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
	}
	return imagestore.NewLocal(cfg.ImageDir)
}

// newApp opens storage and wires every service. The caller closes the app.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	rules, err := placementRules(cfg.Policy)
	if err != nil {
		return nil, err
	}
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure image store: %w", err)
	}
	storage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, storage: storage}

	var locker application.Locker = locking.NewLocal()
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		locker = locking.NewRedis(a.redis, locking.RedisOptions{Prefix: lockPrefix, TTL: cfg.LockTTL}, logger)
	}

	idGenerator := uuid.NewString
	now := time.Now
	hasher := application.NewPasswordHasher(application.DefaultArgon2idParams)
	tokens := application.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, idGenerator, now)

	a.desks = application.NewDeskServiceWithLogger(storage, rules, idGenerator, now, logger)
	a.employees = application.NewEmployeeServiceWithLogger(storage, blobs, rules, idGenerator, now, logger)
	a.skills = application.NewSkillService(storage.Skills(), idGenerator, now, logger)
	a.gallery = application.NewGalleryService(storage, blobs, idGenerator, now, logger)
	a.reservations = application.NewReservationService(storage, locker, rules, recurrence.NewEngine(time.UTC), cfg.MaxSeriesLength, idGenerator, now, logger)
	a.users = application.NewUserService(storage, hasher, idGenerator, now, logger)
	a.groups = application.NewGroupService(storage.Groups(), now, logger)
	a.auth = application.NewAuthService(storage.Users(), hasher, tokens, logger)
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.storage.Close())
	return errors.Join(errs...)
}

func (a *app) handler() http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(a.auth, a.users, a.logger),
		Desks:         httptransport.NewDeskHandler(a.desks, a.logger),
		Skills:        httptransport.NewSkillHandler(a.skills, a.logger),
		Employees:     httptransport.NewEmployeeHandler(a.employees, a.logger),
		Images:        httptransport.NewImageHandler(a.gallery, a.cfg.MaxUploadBytes, a.logger),
		Reservations:  httptransport.NewReservationHandler(a.reservations, a.logger),
		Users:         httptransport.NewUserHandler(a.users, a.logger),
		Groups:        httptransport.NewGroupHandler(a.groups, a.logger),
		Authenticator: a.auth,
		Health:        a.storage.Ping,
		AuthRateLimit: a.cfg.RateLimitPerMinute,
		Logger:        a.logger,
	})
}

// serve runs the HTTP API until ctx is cancelled, then drains connections.
func (a *app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.HTTPPort),
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("failed to shutdown server", zap.Error(err))
		}
	}()

	a.logger.Info("office API listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}
