// Package allocation manages target allocation configurations: loading them,
// normalizing raw weights and grouping allocation results by category.
package allocation

import (
	"fmt"
	"math"

	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"gonum.org/v1/gonum/floats"
)

// Target categories. They are descriptive only and never enter the allocation math.
const (
	CategoryFixedIncome   = "Renda Fixa"
	CategoryEquities      = "Ações"
	CategoryInternational = "Exterior"
)

// DefaultTargets returns the reference eight-asset portfolio.
// Weights already sum to 1.
func DefaultTargets() []rebalancing.AssetTarget {
	return []rebalancing.AssetTarget{
		{Category: CategoryFixedIncome, AssetID: "B5P211", TargetWeight: 0.30},
		{Category: CategoryFixedIncome, AssetID: "IB5M11", TargetWeight: 0.10},
		{Category: CategoryEquities, AssetID: "DIVO11", TargetWeight: 0.075},
		{Category: CategoryEquities, AssetID: "charles-river-fia", TargetWeight: 0.075},
		{Category: CategoryEquities, AssetID: "guepardo-institucional-fic-fia", TargetWeight: 0.075},
		{Category: CategoryEquities, AssetID: "real-investor-fia-bdr-nivel-i", TargetWeight: 0.075},
		{Category: CategoryInternational, AssetID: "IVVB11", TargetWeight: 0.15},
		{Category: CategoryInternational, AssetID: "WRLD11", TargetWeight: 0.15},
	}
}

// WeightSum returns the sum of the target weights
func WeightSum(targets []rebalancing.AssetTarget) float64 {
	weights := make([]float64, len(targets))
	for i, t := range targets {
		weights[i] = t.TargetWeight
	}
	return floats.Sum(weights)
}

// NormalizeWeights returns a copy of targets whose weights are divided by their
// sum, so they add up to 1. Raw weights such as slider positions or percentages
// go through here before reaching the rebalancer, which never rescales.
func NormalizeWeights(targets []rebalancing.AssetTarget) ([]rebalancing.AssetTarget, error) {
	if len(targets) == 0 {
		return nil, &rebalancing.ConfigurationError{Reason: "target weights must not be empty"}
	}
	for _, t := range targets {
		if math.IsNaN(t.TargetWeight) || math.IsInf(t.TargetWeight, 0) || t.TargetWeight < 0 {
			return nil, &rebalancing.ConfigurationError{
				Reason: fmt.Sprintf("target weight for %q must be a non-negative number, got %v", t.AssetID, t.TargetWeight),
			}
		}
	}

	sum := WeightSum(targets)
	if sum <= 0 {
		return nil, &rebalancing.ConfigurationError{
			Reason: fmt.Sprintf("target weights must sum to a positive number, got %v", sum),
		}
	}

	out := make([]rebalancing.AssetTarget, len(targets))
	for i, t := range targets {
		t.TargetWeight /= sum
		out[i] = t
	}
	return out, nil
}

// Weights returns the asset_id → weight map of targets
func Weights(targets []rebalancing.AssetTarget) map[string]float64 {
	result := make(map[string]float64, len(targets))
	for _, t := range targets {
		result[t.AssetID] = t.TargetWeight
	}
	return result
}
