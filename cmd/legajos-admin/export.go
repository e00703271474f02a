package main

import (
	"fmt"
	"os"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write xlsx reports",
	}
	cmd.AddCommand(newExportOccupancyCmd(), newExportTimelineCmd())
	return cmd
}

func newExportOccupancyCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "occupancy",
		Short: "Export the occupancy of every slot pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			defer env.close()
			svc, err := env.services(false)
			if err != nil {
				return err
			}
			rows, err := svc.Scheduler.ListOccupancy(cmd.Context(), cliActor)
			if err != nil {
				return err
			}
			data, err := export.OccupancyWorkbook(rows)
			if err != nil {
				return err
			}
			return writeFile(cmd, out, data, len(rows))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "occupancy.xlsx", "output file")
	return cmd
}

func newExportTimelineCmd() *cobra.Command {
	var out, derivationID string
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Export the event history of one derivation",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			defer env.close()
			svc, err := env.services(false)
			if err != nil {
				return err
			}
			evs, err := svc.Audit.ListEvents(cmd.Context(), cliActor, domain.EventFilter{DerivationID: derivationID})
			if err != nil {
				return err
			}
			data, err := export.TimelineWorkbook(evs)
			if err != nil {
				return err
			}
			return writeFile(cmd, out, data, len(evs))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "timeline.xlsx", "output file")
	cmd.Flags().StringVar(&derivationID, "derivation", "", "derivation id")
	_ = cmd.MarkFlagRequired("derivation")
	return cmd
}

func writeFile(cmd *cobra.Command, path string, data []byte, rows int) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", path, rows)
	return nil
}
