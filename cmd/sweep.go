package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/studybuddy-backend/internal/app"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remind and delete stale unverified accounts once, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := app.LoadConfig()
		cfg.SweepEnabled = false

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Services.Sweeper.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}
