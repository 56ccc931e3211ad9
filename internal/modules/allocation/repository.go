package allocation

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// targetsFile is the YAML layout of a target configuration
type targetsFile struct {
	Targets []rebalancing.AssetTarget `yaml:"targets"`
}

// Repository reads target configurations from a YAML file
type Repository struct {
	path string
	log  zerolog.Logger
}

// NewRepository creates a new allocation repository backed by path
func NewRepository(path string, log zerolog.Logger) *Repository {
	return &Repository{
		path: path,
		log:  log.With().Str("repo", "allocation").Logger(),
	}
}

// Path returns the configuration file path
func (r *Repository) Path() string {
	return r.path
}

// Load reads the targets file and normalizes its weights.
// When the file does not exist the default targets are returned.
func (r *Repository) Load() ([]rebalancing.AssetTarget, error) {
	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		r.log.Warn().Str("path", r.path).Msg("Targets file not found, using default targets")
		return DefaultTargets(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()

	raw, err := ParseTargets(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file %s: %w", r.path, err)
	}

	sum := WeightSum(raw)
	targets, err := NormalizeWeights(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid targets file %s: %w", r.path, err)
	}

	r.log.Info().
		Str("path", r.path).
		Int("targets", len(targets)).
		Float64("raw_weight_sum", sum).
		Msg("Loaded allocation targets")

	return targets, nil
}

// ParseTargets decodes a YAML target configuration without normalizing weights.
// Asset ids and categories are trimmed; duplicates and empty ids are rejected.
func ParseTargets(r io.Reader) ([]rebalancing.AssetTarget, error) {
	var file targetsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, &rebalancing.ConfigurationError{Reason: "targets file is empty"}
		}
		return nil, fmt.Errorf("failed to decode targets: %w", err)
	}

	targets := make([]rebalancing.AssetTarget, len(file.Targets))
	for i, t := range file.Targets {
		t.AssetID = strings.TrimSpace(t.AssetID)
		t.Category = strings.TrimSpace(t.Category)
		targets[i] = t
	}

	if err := rebalancing.ValidateTargets(targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// WriteTargets encodes targets in the layout ParseTargets reads
func WriteTargets(w io.Writer, targets []rebalancing.AssetTarget) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(targetsFile{Targets: targets}); err != nil {
		return fmt.Errorf("failed to encode targets: %w", err)
	}
	return enc.Close()
}
