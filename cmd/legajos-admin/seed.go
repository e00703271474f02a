package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout accepted by `legajos-admin seed`.
type seedFile struct {
	Programs []struct {
		ID                 string `yaml:"id"`
		Name               string `yaml:"name"`
		AllocatesSeats     bool   `yaml:"allocates_seats"`
		RequiresEntryIndex bool   `yaml:"requires_entry_index"`
		Active             *bool  `yaml:"active"`
	} `yaml:"programs"`
	Criteria []struct {
		Family     domain.CriterionFamily `yaml:"family"`
		Kind       string                 `yaml:"kind"`
		Weight     int                    `yaml:"weight"`
		Modifiable bool                   `yaml:"modifiable"`
		Text       string                 `yaml:"text"`
	} `yaml:"criteria"`
	ResponsibleAgents []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"responsible_agents"`
	SlotPools []struct {
		domain.SlotKey `yaml:",inline"`
		Capacity       int `yaml:"capacity"`
	} `yaml:"slot_pools"`
}

type seedSummary struct {
	Programs, Criteria, SkippedCriteria, Agents, Pools int
}

func decodeSeed(r io.Reader) (*seedFile, error) {
	var s seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &s, nil
}

// applySeed upserts programs, agents and pools. Criteria are created unless one with the same
// family and text already exists.
func applySeed(ctx context.Context, svc *service.Services, s *seedFile) (seedSummary, error) {
	var sum seedSummary
	for _, p := range s.Programs {
		_, err := svc.Catalog.UpsertProgram(ctx, cliActor, domain.Program{
			ID:                 p.ID,
			Name:               p.Name,
			AllocatesSeats:     p.AllocatesSeats,
			RequiresEntryIndex: p.RequiresEntryIndex,
			Active:             p.Active == nil || *p.Active,
		})
		if err != nil {
			return sum, fmt.Errorf("program %s: %w", p.ID, err)
		}
		sum.Programs++
	}

	existing, err := svc.Catalog.ListCriteria(ctx, cliActor, "", domain.CriteriaFilter{IncludeInactive: true})
	if err != nil {
		return sum, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[criterionKey(c.Family, c.Text)] = true
	}
	for _, c := range s.Criteria {
		if seen[criterionKey(c.Family, c.Text)] {
			sum.SkippedCriteria++
			continue
		}
		_, err := svc.Catalog.CreateCriterion(ctx, cliActor, service.CreateCriterionRequest{
			Family:     c.Family,
			Kind:       c.Kind,
			Weight:     c.Weight,
			Modifiable: c.Modifiable,
			Text:       c.Text,
		})
		if err != nil {
			return sum, fmt.Errorf("criterion %q: %w", c.Text, err)
		}
		seen[criterionKey(c.Family, c.Text)] = true
		sum.Criteria++
	}

	for _, a := range s.ResponsibleAgents {
		if _, err := svc.Catalog.UpsertResponsibleAgent(ctx, cliActor, domain.ResponsibleAgent{Code: a.Code, Name: a.Name, Active: true}); err != nil {
			return sum, fmt.Errorf("responsible agent %s: %w", a.Code, err)
		}
		sum.Agents++
	}

	for _, p := range s.SlotPools {
		if _, err := svc.Scheduler.UpsertSlotPool(ctx, cliActor, p.SlotKey, p.Capacity); err != nil {
			return sum, fmt.Errorf("slot pool %s: %w", p.SlotKey, err)
		}
		sum.Pools++
	}
	return sum, nil
}

func criterionKey(f domain.CriterionFamily, text string) string {
	return string(f) + "|" + strings.ToLower(strings.TrimSpace(text))
}

func newSeedCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "seed FILE.yaml",
		Short: "Load programs, criteria, responsible agents and slot pools from YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			s, err := decodeSeed(f)
			if err != nil {
				return err
			}

			env, err := loadEnv()
			if err != nil {
				return err
			}
			defer env.close()
			svc, err := env.services(dryRun)
			if err != nil {
				return err
			}
			sum, err := applySeed(cmd.Context(), svc, s)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "programs=%d criteria=%d skipped_criteria=%d agents=%d pools=%d dry_run=%t\n",
				sum.Programs, sum.Criteria, sum.SkippedCriteria, sum.Agents, sum.Pools, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate against an in-memory store instead of Postgres")
	return cmd
}
