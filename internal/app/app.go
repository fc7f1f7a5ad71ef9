// Package app wires repositories, infrastructure and services from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nikosoko-backend/internal/config"
	"nikosoko-backend/internal/events"
	"nikosoko-backend/internal/lock"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/metrics"
	"nikosoko-backend/internal/repository"
	"nikosoko-backend/internal/repository/memory"
	"nikosoko-backend/internal/repository/postgres"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
)

// Repositories is the storage surface shared by both backends.
type Repositories struct {
	Providers     repository.ProviderRepository
	Organizations repository.OrganizationRepository
	JoinRequests  repository.JoinRequestRepository
	Invitations   repository.InvitationRepository
	Notifications repository.NotificationRepository
	Premises      repository.PremiseRepository
}

type App struct {
	Config  *config.Config
	DB      *sql.DB // nil for the memory backend
	Repos   Repositories
	Metrics *metrics.Metrics
	Tokens  security.TokenManager

	Auth          service.AuthService
	Organizations service.OrganizationService
	Membership    service.MembershipService
	GatePass      service.GatePassService
	Premises      service.PremiseService
	Notifications service.NotificationService

	closers []func() error
}

// New builds every dependency named by cfg. Close releases the connections it opened.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if err := a.openStorage(ctx); err != nil {
		return nil, err
	}
	locker, err := a.openLocker(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.openPublisher()
	if err != nil {
		return nil, err
	}
	notifiers, err := a.notifiers(ctx)
	if err != nil {
		return nil, err
	}

	a.Tokens = security.NewTokenManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Minute,
	)

	inbox := service.NewInbox(a.Repos.Notifications, a.Metrics, notifiers...)
	a.Premises = service.NewPremiseService(a.Repos.Premises, a.Repos.Providers)
	a.Auth = service.NewAuthService(a.Repos.Providers, a.Premises, a.Tokens, cfg.Admin.Phones)
	a.Organizations = service.NewOrganizationService(a.Repos.Organizations)
	a.Membership = service.NewMembershipService(
		a.Repos.Organizations,
		a.Repos.Providers,
		a.Repos.JoinRequests,
		inbox,
		locker,
		publisher,
		a.Metrics,
	)
	a.GatePass = service.NewGatePassService(
		a.Repos.Invitations,
		a.Repos.Providers,
		inbox,
		locker,
		publisher,
		a.Metrics,
		service.GatePassOptions{CodeAttempts: cfg.GatePass.CodeAttempts},
	)
	a.Notifications = service.NewNotificationService(a.Repos.Notifications)

	ok = true
	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	cfg := a.Config
	if cfg.Storage.Type != config.StoragePostgres {
		logger.Info("Using in-memory storage")
		store := memory.NewStore()
		a.Repos = Repositories{
			Providers:     store.Providers(),
			Organizations: store.Organizations(),
			JoinRequests:  store.JoinRequests(),
			Invitations:   store.Invitations(),
			Notifications: store.Notifications(),
			Premises:      store.Premises(),
		}
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
	}
	a.Repos = Repositories{
		Providers:     store.ProviderRepository,
		Organizations: store.OrganizationRepository,
		JoinRequests:  store.JoinRequestRepository,
		Invitations:   store.InvitationRepository,
		Notifications: store.NotificationRepository,
		Premises:      store.PremiseRepository,
	}
	return nil
}

func (a *App) openLocker(ctx context.Context) (lock.Locker, error) {
	cfg := a.Config
	if cfg.Lock.Type != config.LockRedis {
		return lock.NewKeyedMutex(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Using redis locks", "addr", cfg.Redis.Addr)
	return lock.NewRedisLocker(
		client,
		cfg.Lock.KeyPrefix,
		time.Duration(cfg.Lock.TTLSeconds)*time.Second,
		time.Duration(cfg.Lock.RetryMillis)*time.Millisecond,
	), nil
}

func (a *App) openPublisher() (events.Publisher, error) {
	cfg := a.Config
	if cfg.NATS.URL == "" {
		return events.Noop{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.ClientName)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pub.Close)
	logger.Info("Publishing events to NATS", "url", cfg.NATS.URL)
	return pub, nil
}

func (a *App) notifiers(ctx context.Context) ([]service.Notifier, error) {
	cfg := a.Config
	var out []service.Notifier
	if cfg.Firebase.Enabled {
		push, err := service.NewPushNotifier(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, err
		}
		out = append(out, push)
	}
	if cfg.SendGrid.APIKey != "" {
		out = append(out, service.NewEmailNotifier(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName))
	}
	for _, n := range out {
		logger.Info("Notifier enabled", "channel", n.Name())
	}
	return out, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}
