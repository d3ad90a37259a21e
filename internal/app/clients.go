package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/yungbote/studybuddy-backend/internal/clients/redis"
	"github.com/yungbote/studybuddy-backend/internal/data/codestore"
	"github.com/yungbote/studybuddy-backend/internal/data/repos"
	"github.com/yungbote/studybuddy-backend/internal/jobs"
	"github.com/yungbote/studybuddy-backend/internal/platform/llm"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
	"github.com/yungbote/studybuddy-backend/internal/platform/mailer"
)

type Clients struct {
	LLM    llm.Client
	Mailer mailer.Mailer
	Redis  *goredis.Client
	Codes  codestore.Store
	// Locker is nil without redis; the sweeper then runs unguarded.
	Locker jobs.Locker
}

func wireClients(log *logger.Logger, cfg Config, reposet repos.Set, opts options) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.Redis.Enabled() {
		rdb, err := redisclient.New(log, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		out.Codes = redisclient.NewCodeStore(rdb, cfg.Redis.KeyPrefix, log)
		out.Locker = redisclient.NewLocker(rdb, cfg.Redis.KeyPrefix)
	} else {
		out.Codes = codestore.NewUserColumnStore(reposet.User)
	}

	// LLM
	if opts.llm != nil {
		out.LLM = opts.llm
	} else {
		client, err := llm.New(log, cfg.LLM)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init llm client: %w", err)
		}
		out.LLM = client
	}

	// Mail
	if opts.mailer != nil {
		out.Mailer = opts.mailer
	} else {
		m, err := mailer.New(log, cfg.Mail)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init mailer: %w", err)
		}
		out.Mailer = m
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
