package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/studybuddy-backend/internal/app"
	"github.com/yungbote/studybuddy-backend/internal/platform/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()
		log, err := logger.New(cfg.LogMode)
		if err != nil {
			return err
		}
		defer log.Sync()

		svc, err := app.OpenDB(log, cfg)
		if err != nil {
			return err
		}
		defer svc.Close()
		return svc.AutoMigrateAll()
	},
}
