package rebalancing

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Plan(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	service := NewService(twoAssetTargets(0.5, 0.5), 100, log)

	plan, err := service.Plan(holdings(map[string]float64{"A": 100, "B": 100}), PlanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 100.0, plan.Contribution)
	assert.InDelta(t, 50.0, plan.Table.Rows[0].Contribution, 1e-9)

	contribution := 300.0
	plan, err = service.Plan(nil, PlanOptions{
		Targets:      []AssetTarget{{AssetID: "X", TargetWeight: 1}},
		Contribution: &contribution,
	})
	require.NoError(t, err)
	require.Len(t, plan.Table.Rows, 1)
	assert.Equal(t, "X", plan.Table.Rows[0].AssetID)
	assert.Equal(t, 300.0, plan.Table.Rows[0].Contribution)

	_, err = service.Plan(nil, PlanOptions{Targets: []AssetTarget{}})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestService_TargetsAreCopied(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	targets := twoAssetTargets(0.5, 0.5)
	service := NewService(targets, 2500, log)

	targets[0].TargetWeight = 0.9
	got := service.Targets()
	assert.Equal(t, 0.5, got[0].TargetWeight)

	got[1].AssetID = "changed"
	assert.Equal(t, "B", service.Targets()[1].AssetID)
	assert.Equal(t, 2500.0, service.DefaultContribution())
}
