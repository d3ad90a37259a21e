package app

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"

	redisclient "github.com/yungbote/studybuddy-backend/internal/clients/redis"
	"github.com/yungbote/studybuddy-backend/internal/data/db"
	"github.com/yungbote/studybuddy-backend/internal/normalize"
	"github.com/yungbote/studybuddy-backend/internal/observability"
	"github.com/yungbote/studybuddy-backend/internal/platform/envutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/platform/mailer"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	LogMode string
	Addr    string

	JWTSecret string
	AccessTTL time.Duration
	ResetURL  string

	CORSOrigins []string

	SweepEnabled  bool
	SweepInterval time.Duration

	Shortfall   normalize.ShortfallPolicy
	MetricsAddr string

	DB    db.Config
	LLM   llm.Config
	Mail  mailer.Config
	Redis redisclient.Config
	Otel  observability.OtelConfig
}

// LoadEnvFiles seeds the environment from the given files, or ".env" when
// none are given. Missing files are ignored and set variables win.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func LoadConfig() Config {
	return Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		Addr:    envutil.String("HTTP_ADDR", ":"+envutil.String("PORT", "5000")),

		JWTSecret: envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),
		ResetURL:  envutil.String("RESET_URL", "http://localhost:3000/reset-password"),

		CORSOrigins: envutil.List("CORS_ORIGINS", nil),

		SweepEnabled:  envutil.Bool("SWEEP_ENABLED", true),
		SweepInterval: envutil.Duration("SWEEP_INTERVAL", time.Hour),

		Shortfall:   normalize.ParseShortfallPolicy(envutil.String("QUIZ_SHORTFALL_POLICY", "clone_last")),
		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),

		DB:    db.ConfigFromEnv(),
		LLM:   llm.ConfigFromEnv(),
		Mail:  mailer.ConfigFromEnv(),
		Redis: redisclient.ConfigFromEnv(),
		Otel:  observability.OtelConfigFromEnv(),
	}
}

// Warn logs settings that are unsafe outside local development.
func (c Config) Warn(log *logger.Logger) {
	if c.JWTSecret == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set; using the development default")
	}
	if strings.EqualFold(c.DB.Driver, db.DriverSQLite) {
		log.Warn("using sqlite; intended for local development only")
	}
}
