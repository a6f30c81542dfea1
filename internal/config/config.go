// Package config assembles the service configuration from defaults, a .env
// file, the environment and command line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"campushub/internal/logger"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

const (
	defaultListenAddr      = "localhost:8080"
	defaultDBName          = "campushub"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
	defaultOTPTTL          = 10 * time.Minute
)

type Config struct {
	ListenAddr string

	MongoURI string
	DBName   string

	// StoreBackend is mongo or memory. OTPBackend may also be redis.
	StoreBackend string
	OTPBackend   string
	RedisAddr    string

	// One signing key per tenant and token kind.
	AdminAccessSecret   string
	AdminRefreshSecret  string
	PublicAccessSecret  string
	PublicRefreshSecret string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	OTPTTL          time.Duration

	LogLevel    string
	Environment string

	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
}

func NewConfig() *Config {
	return &Config{
		ListenAddr:      defaultListenAddr,
		DBName:          defaultDBName,
		StoreBackend:    StoreMongo,
		OTPBackend:      StoreMongo,
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		OTPTTL:          defaultOTPTTL,
		LogLevel:        logger.LevelInfo,
		Environment:     logger.EnvDevelopment,
	}
}

// Load runs every layer and validates the result.
func Load(args []string) (*Config, error) {
	c := NewConfig()
	if err := c.LoadDotEnv(os.Getwd); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := c.LoadEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.ParseFlags(args); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadDotEnv reads '.env' from the working directory. A missing file is fine.
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value = strings.TrimSpace(value); value != "" {
				*o = value
			}
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value = strings.TrimSpace(value); value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"RUN_ADDRESS":           setString(&c.ListenAddr),
		"MONGO_URI":             setString(&c.MongoURI),
		"DB_NAME":               setString(&c.DBName),
		"STORE_BACKEND":         setString(&c.StoreBackend),
		"OTP_BACKEND":           setString(&c.OTPBackend),
		"REDIS_ADDR":            setString(&c.RedisAddr),
		"ADMIN_ACCESS_SECRET":   setString(&c.AdminAccessSecret),
		"ADMIN_REFRESH_SECRET":  setString(&c.AdminRefreshSecret),
		"PUBLIC_ACCESS_SECRET":  setString(&c.PublicAccessSecret),
		"PUBLIC_REFRESH_SECRET": setString(&c.PublicRefreshSecret),
		"ACCESS_TOKEN_TTL":      setDuration(&c.AccessTokenTTL),
		"REFRESH_TOKEN_TTL":     setDuration(&c.RefreshTokenTTL),
		"OTP_TTL":               setDuration(&c.OTPTTL),
		"LOG_LEVEL":             setString(&c.LogLevel),
		"ENVIRONMENT":           setString(&c.Environment),
		"SMTP_ADDR":             setString(&c.SMTPAddr),
		"SMTP_FROM":             setString(&c.SMTPFrom),
		"SMTP_USERNAME":         setString(&c.SMTPUsername),
		"SMTP_PASSWORD":         setString(&c.SMTPPassword),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, fmt.Errorf("env %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("campushub", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.MongoURI, "mongo-uri", "m", c.MongoURI, "MongoDB connection string")
	fs.StringVar(&c.DBName, "db-name", c.DBName, "MongoDB database name")
	fs.StringVar(&c.StoreBackend, "store", c.StoreBackend, "Account store backend (mongo, memory)")
	fs.StringVar(&c.OTPBackend, "otp-store", c.OTPBackend, "OTP store backend (mongo, redis, memory)")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for the redis OTP store")
	fs.DurationVar(&c.AccessTokenTTL, "access-ttl", c.AccessTokenTTL, "Access token lifetime")
	fs.DurationVar(&c.RefreshTokenTTL, "refresh-ttl", c.RefreshTokenTTL, "Refresh token lifetime")
	fs.DurationVar(&c.OTPTTL, "otp-ttl", c.OTPTTL, "One-time passcode lifetime")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (development, production)")

	return fs.Parse(args)
}

func (c *Config) Validate() error {
	var errs []error

	secrets := map[string]string{
		"ADMIN_ACCESS_SECRET":   c.AdminAccessSecret,
		"ADMIN_REFRESH_SECRET":  c.AdminRefreshSecret,
		"PUBLIC_ACCESS_SECRET":  c.PublicAccessSecret,
		"PUBLIC_REFRESH_SECRET": c.PublicRefreshSecret,
	}
	seen := make(map[string]string, len(secrets))
	for _, key := range []string{"ADMIN_ACCESS_SECRET", "ADMIN_REFRESH_SECRET", "PUBLIC_ACCESS_SECRET", "PUBLIC_REFRESH_SECRET"} {
		value := secrets[key]
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
			continue
		}
		if other, ok := seen[value]; ok {
			errs = append(errs, fmt.Errorf("%s must differ from %s", key, other))
			continue
		}
		seen[value] = key
	}

	switch c.StoreBackend {
	case StoreMongo, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.StoreBackend))
	}
	switch c.OTPBackend {
	case StoreMongo, StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown otp backend %q", c.OTPBackend))
	}
	if c.OTPBackend == StoreMongo && c.StoreBackend != StoreMongo {
		errs = append(errs, errors.New("mongo otp store needs the mongo account store"))
	}

	if c.StoreBackend == StoreMongo && c.MongoURI == "" {
		errs = append(errs, errors.New("MONGO_URI is required"))
	}
	if c.OTPBackend == StoreRedis && c.RedisAddr == "" {
		errs = append(errs, errors.New("REDIS_ADDR is required for the redis otp store"))
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.OTPTTL <= 0 {
		errs = append(errs, errors.New("token and otp lifetimes must be positive"))
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("access token lifetime must be shorter than refresh token lifetime"))
	}

	return errors.Join(errs...)
}

// Production reports whether cookies have to be marked Secure.
func (c *Config) Production() bool {
	return c.Environment == logger.EnvProduction
}
