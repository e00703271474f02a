package main

import (
	"github.com/dsocial118/SISOC-sub000/internal/repository"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|status|version|redo|reset] [args...]",
		Short: "Run schema migrations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			defer env.close()
			db, err := env.openDB()
			if err != nil {
				return err
			}
			return repository.Migrate(cmd.Context(), db, args[0], args[1:]...)
		},
	}
}
