// Package app wires the stores and services of both tenants from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"campushub/internal/auth"
	"campushub/internal/config"
	"campushub/internal/database"
	"campushub/internal/handlers"
	"campushub/internal/logger"
	"campushub/internal/mailer"
	"campushub/internal/store"
	"campushub/internal/store/memstore"
	"campushub/internal/store/mongostore"
	"campushub/internal/store/redisstore"
)

type App struct {
	Admin    handlers.TenantDeps
	Public   handlers.TenantDeps
	Colleges store.CollegeStore

	log     logger.Logger
	pingers []store.Pinger
	closers []func() error
}

type otpStores struct {
	admin  store.OTPStore
	public store.OTPStore
}

// New connects the configured backends. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{log: log}

	admins, users, db, err := a.openAccounts(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	otps, err := a.openOTPs(ctx, cfg, db)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	sender, err := newSender(cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	adminTenant := auth.AdminTenant(cfg.AdminAccessSecret, cfg.AdminRefreshSecret)
	publicTenant := auth.PublicTenant(cfg.PublicAccessSecret, cfg.PublicRefreshSecret)

	a.Admin, err = newTenantDeps(withConfig(adminTenant, cfg), admins, otps.admin, sender, cfg.OTPTTL, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Public, err = newTenantDeps(withConfig(publicTenant, cfg), users, otps.public, sender, cfg.OTPTTL, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}

func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(handlers.Deps{
		Admin:    a.Admin,
		Public:   a.Public,
		Colleges: a.Colleges,
		Pingers:  a.pingers,
		Log:      a.log,
	})
}

// Close releases the backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openAccounts(ctx context.Context, cfg *config.Config) (store.AccountStore, store.AccountStore, *mongo.Database, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, nil, err
		}
		a.closers = append(a.closers, func() error { return database.Disconnect(client) })

		db := client.Database(cfg.DBName)
		if err := database.EnsureIndexes(ctx, db, a.log); err != nil {
			return nil, nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		a.log.Info("mongo connected", "db", db.Name())

		admins := mongostore.NewAccountStore(db, store.AdminsCollection)
		a.Colleges = mongostore.NewCollegeStore(db)
		a.pingers = append(a.pingers, admins)
		return admins, mongostore.NewAccountStore(db, store.UsersCollection), db, nil

	case config.StoreMemory:
		a.log.Warn("memory account store selected, accounts are lost on restart")
		a.Colleges = memstore.NewCollegeStore()
		return memstore.NewAccountStore(), memstore.NewAccountStore(), nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) openOTPs(ctx context.Context, cfg *config.Config, db *mongo.Database) (otpStores, error) {
	switch cfg.OTPBackend {
	case config.StoreMongo:
		if db == nil {
			return otpStores{}, errors.New("mongo otp store needs the mongo account store")
		}
		return otpStores{
			admin:  mongostore.NewOTPStore(db, store.AdminOTPCollection),
			public: mongostore.NewOTPStore(db, store.OTPCollection),
		}, nil

	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rdb.Close)

		admin := redisstore.NewOTPStore(rdb, auth.TenantAdmin)
		if err := admin.Ping(ctx); err != nil {
			return otpStores{}, fmt.Errorf("redis ping: %w", err)
		}
		a.pingers = append(a.pingers, admin)
		return otpStores{admin: admin, public: redisstore.NewOTPStore(rdb, auth.TenantPublic)}, nil

	case config.StoreMemory:
		return otpStores{admin: memstore.NewOTPStore(), public: memstore.NewOTPStore()}, nil

	default:
		return otpStores{}, fmt.Errorf("unknown otp backend %q", cfg.OTPBackend)
	}
}

func newSender(cfg *config.Config, log logger.Logger) (auth.CodeSender, error) {
	if cfg.SMTPAddr == "" {
		log.Warn("SMTP_ADDR not set, passcodes are written to the log")
		return mailer.NewLog(log, !cfg.Production()), nil
	}

	m, err := mailer.NewSMTP(mailer.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		From:     cfg.SMTPFrom,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}
	return m, nil
}

func withConfig(t auth.Tenant, cfg *config.Config) auth.Tenant {
	t.AccessTTL = cfg.AccessTokenTTL
	t.RefreshTTL = cfg.RefreshTokenTTL
	t.SecureCookie = cfg.Production()
	return t
}

func newTenantDeps(
	tenant auth.Tenant,
	accounts store.AccountStore,
	otps store.OTPStore,
	sender auth.CodeSender,
	otpTTL time.Duration,
	log logger.Logger,
) (handlers.TenantDeps, error) {
	if err := tenant.Validate(); err != nil {
		return handlers.TenantDeps{}, fmt.Errorf("tenant %s: %w", tenant.Name, err)
	}

	tokens, err := auth.NewTokenService(tenant)
	if err != nil {
		return handlers.TenantDeps{}, err
	}

	return handlers.TenantDeps{
		Sessions: auth.NewSessionManager(tenant, accounts, tokens, auth.BcryptHasher{}, log),
		Gate:     auth.NewGate(tokens, accounts),
		OTP:      auth.NewOTPService(tenant, otps, accounts, sender, otpTTL, log),
		Accounts: accounts,
	}, nil
}
