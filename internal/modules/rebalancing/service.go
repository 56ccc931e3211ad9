package rebalancing

import (
	"github.com/rs/zerolog"
)

// PlanOptions overrides the service defaults for one plan.
// Nil fields fall back to the configured targets and contribution.
type PlanOptions struct {
	Targets      []AssetTarget
	Contribution *float64
}

// Service runs plans against a configured target set and default contribution.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	targets             []AssetTarget
	defaultContribution float64
	log                 zerolog.Logger
}

// NewService creates a new rebalancing service
func NewService(
	targets []AssetTarget,
	defaultContribution float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		targets:             append([]AssetTarget(nil), targets...),
		defaultContribution: defaultContribution,
		log:                 log.With().Str("service", "rebalancing").Logger(),
	}
}

// Targets returns a copy of the configured targets
func (s *Service) Targets() []AssetTarget {
	return append([]AssetTarget(nil), s.targets...)
}

// DefaultContribution returns the contribution used when a request has none
func (s *Service) DefaultContribution() float64 {
	return s.defaultContribution
}

// Plan builds a plan for a holdings snapshot
func (s *Service) Plan(raw []RawHolding, opts PlanOptions) (*Plan, error) {
	targets := opts.Targets
	if targets == nil {
		targets = s.targets
	}
	contribution := s.defaultContribution
	if opts.Contribution != nil {
		contribution = *opts.Contribution
	}

	plan, err := BuildPlan(raw, targets, contribution)
	if err != nil {
		s.log.Warn().Err(err).
			Int("holdings", len(raw)).
			Int("targets", len(targets)).
			Msg("Rebalancing plan rejected")
		return nil, err
	}

	if len(plan.Table.Unmatched) > 0 {
		s.log.Warn().
			Strs("asset_ids", plan.Table.Unmatched).
			Msg("Holdings not in target configuration were ignored")
	}
	if len(plan.Table.NegativeValues) > 0 {
		s.log.Warn().
			Strs("asset_ids", plan.Table.NegativeValues).
			Msg("Negative market values were treated as zero")
	}

	s.log.Debug().
		Int("holdings", len(raw)).
		Int("targets", len(targets)).
		Float64("contribution", contribution).
		Float64("total_value", plan.Summary.TotalValue).
		Float64("allocated", plan.Summary.Allocated).
		Bool("balanced", plan.Balanced).
		Msg("Rebalancing plan computed")

	return plan, nil
}
