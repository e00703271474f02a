package main

import (
	"context"
	"strings"
	"testing"

	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"
	"github.com/dsocial118/SISOC-sub000/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleSeed = `
programs:
  - id: nursery
    name: Centros de desarrollo infantil
    allocates_seats: true
  - id: family
    name: Acompañamiento familiar
    requires_entry_index: true
criteria:
  - {family: IVI, kind: housing, weight: 4, text: Overcrowded housing}
  - {family: IVI, kind: health, weight: 6, modifiable: true, text: No health coverage}
  - {family: ENTRY, kind: income, weight: 7, text: No formal income}
responsible_agents:
  - {code: social_worker, name: Social worker}
slot_pools:
  - {centre: C1, sala: "2", shift: morning, capacity: 12}
`

func TestSeed_AppliesAndIsRepeatable(t *testing.T) {
	ctx := context.Background()
	s, err := decodeSeed(strings.NewReader(sampleSeed))
	require.NoError(t, err)

	svc := service.New(repository.NewMemoryStore(), service.WithLogger(zap.NewNop()))
	sum, err := applySeed(ctx, svc, s)
	require.NoError(t, err)
	assert.Equal(t, seedSummary{Programs: 2, Criteria: 3, Agents: 1, Pools: 1}, sum)

	sum, err = applySeed(ctx, svc, s)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Criteria)
	assert.Equal(t, 3, sum.SkippedCriteria)

	crit, err := svc.Catalog.ListCriteria(ctx, cliActor, domain.FamilyIVI, domain.CriteriaFilter{})
	require.NoError(t, err)
	assert.Len(t, crit, 2)

	occ, err := svc.Scheduler.Occupancy(ctx, cliActor, domain.SlotKey{Centre: "C1", Sala: "2", Shift: "morning"})
	require.NoError(t, err)
	assert.Equal(t, 12, occ.Capacity)
}

func TestSeed_RejectsUnknownFieldsAndBadWeights(t *testing.T) {
	_, err := decodeSeed(strings.NewReader("programs:\n  - id: x\n    nmae: typo\n"))
	assert.Error(t, err)

	s, err := decodeSeed(strings.NewReader("criteria:\n  - {family: ENTRY, kind: k, weight: 11, text: too heavy}\n"))
	require.NoError(t, err)
	svc := service.New(repository.NewMemoryStore(), service.WithLogger(zap.NewNop()))
	_, err = applySeed(context.Background(), svc, s)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
