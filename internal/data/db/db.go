package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/studybuddy-backend/internal/platform/envutil"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string
	// DSN overrides the POSTGRES_* parts when set. For sqlite it is the file path.
	DSN string

	Host     string
	Port     string
	User     string
	Password string
	Name     string

	SlowThreshold time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		Driver:        strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres)),
		DSN:           envutil.String("DATABASE_URL", ""),
		Host:          envutil.String("POSTGRES_HOST", "localhost"),
		Port:          envutil.String("POSTGRES_PORT", "5432"),
		User:          envutil.String("POSTGRES_USER", "postgres"),
		Password:      envutil.String("POSTGRES_PASSWORD", ""),
		Name:          envutil.String("POSTGRES_NAME", "studybuddy"),
		SlowThreshold: envutil.Duration("DB_SLOW_THRESHOLD", time.Second),
	}
}

func (c Config) dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case DriverPostgres, "":
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s?sslmode=disable",
				c.User,
				c.Password,
				c.Host,
				c.Port,
				c.Name,
			)
		}
		return postgres.Open(dsn), nil
	case DriverSQLite:
		dsn := c.DSN
		if dsn == "" {
			dsn = "studybuddy.db"
		}
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}

type Service struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

func NewService(logg *logger.Logger, cfg Config) (*Service, error) {
	serviceLog := logg.With("service", "DatabaseService", "driver", cfg.Driver)

	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}
	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = time.Second
	}
	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLog,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// sqlite allows a single writer.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	serviceLog.Info("Database connected")
	return &Service{db: db, log: serviceLog, driver: cfg.Driver}, nil
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
