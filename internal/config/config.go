package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const EnvPrefix = "COOKPARTY"

type Config struct {
	Bind      string
	Port      int
	PublicURL string
	Origins   []string

	Dev      bool
	LogLevel string

	DBDriver string
	DBDSN    string

	CodeLength      int
	MaxPlayers      int
	AbilityDuration time.Duration
	Intermission    time.Duration
	Tick            time.Duration
	Seed            uint64
	Retries         int

	OutboxSize int
	RateLimit  float64
	RateBurst  int
}

// RegisterFlags declares every setting on fs with its default.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: COOKPARTY_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: COOKPARTY_PORT)")
	fs.StringVar(&c.PublicURL, "public-url", "http://localhost:8080", "externally visible base URL, used for share links (env: COOKPARTY_PUBLIC_URL)")
	fs.StringSliceVar(&c.Origins, "origins", nil, "extra websocket origin patterns to accept (env: COOKPARTY_ORIGINS)")
	fs.BoolVar(&c.Dev, "dev", false, "human readable development logging (env: COOKPARTY_DEV)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug, info, warn or error (env: COOKPARTY_LOG_LEVEL)")
	fs.StringVar(&c.DBDriver, "db-driver", "sqlite", "postgres, sqlite or none (env: COOKPARTY_DB_DRIVER)")
	fs.StringVar(&c.DBDSN, "db-dsn", "cookparty.db", "database DSN or sqlite file (env: COOKPARTY_DB_DSN)")
	fs.IntVar(&c.CodeLength, "code-length", 4, "room code length (env: COOKPARTY_CODE_LENGTH)")
	fs.IntVar(&c.MaxPlayers, "max-players", 8, "players per room (env: COOKPARTY_MAX_PLAYERS)")
	fs.DurationVar(&c.AbilityDuration, "ability-duration", 6*time.Second, "time an ability station takes (env: COOKPARTY_ABILITY_DURATION)")
	fs.DurationVar(&c.Intermission, "intermission", 5*time.Second, "pause between levels (env: COOKPARTY_INTERMISSION)")
	fs.DurationVar(&c.Tick, "tick", time.Second, "round clock period (env: COOKPARTY_TICK)")
	fs.Uint64Var(&c.Seed, "seed", 0, "fixed PRNG seed for every room, 0 for random (env: COOKPARTY_SEED)")
	fs.IntVar(&c.Retries, "retries", 0, "level restarts allowed when time runs out (env: COOKPARTY_RETRIES)")
	fs.IntVar(&c.OutboxSize, "outbox-size", 64, "queued messages per connection before it is dropped (env: COOKPARTY_OUTBOX_SIZE)")
	fs.Float64Var(&c.RateLimit, "rate-limit", 20, "inbound messages per second per connection (env: COOKPARTY_RATE_LIMIT)")
	fs.IntVar(&c.RateBurst, "rate-burst", 40, "inbound message burst per connection (env: COOKPARTY_RATE_BURST)")
}

// ApplyEnv overlays COOKPARTY_* environment variables onto flags the user
// did not set explicitly.
func ApplyEnv(fs *pflag.FlagSet, v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var errs error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if err := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("env %s_%s: %w", EnvPrefix, strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_")), err))
			}
		}
	})
	return errs
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error
	if c.Port < 1 || c.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port))
	}
	if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("invalid public url: %q", c.PublicURL))
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("invalid log level: %q", c.LogLevel))
	}
	switch c.DBDriver {
	case "none":
	case "postgres", "sqlite":
		if c.DBDSN == "" {
			errs = multierr.Append(errs, errors.New("--db-dsn is required with a database driver"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("invalid db driver (postgres, sqlite or none): %q", c.DBDriver))
	}
	if c.CodeLength < 3 || c.CodeLength > 12 {
		errs = multierr.Append(errs, fmt.Errorf("invalid code length (must be between 3-12 inclusive): %d", c.CodeLength))
	}
	if c.MaxPlayers < 1 {
		errs = multierr.Append(errs, fmt.Errorf("max players must be positive: %d", c.MaxPlayers))
	}
	if c.AbilityDuration <= 0 || c.Intermission <= 0 || c.Tick <= 0 {
		errs = multierr.Append(errs, errors.New("ability duration, intermission and tick must be positive"))
	}
	if c.Retries < 0 {
		errs = multierr.Append(errs, fmt.Errorf("retries must not be negative: %d", c.Retries))
	}
	if c.OutboxSize < 1 {
		errs = multierr.Append(errs, fmt.Errorf("outbox size must be positive: %d", c.OutboxSize))
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		errs = multierr.Append(errs, errors.New("rate limit and burst must be positive"))
	}
	return errs
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

func (c *Config) NewLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}
