package rebalancing

import (
	"errors"
	"fmt"
)

// Error taxonomy of the rebalancer. Callers match with errors.Is against the
// sentinels or errors.As against the typed errors to read the details.
var (
	// ErrConfiguration indicates the target configuration or the contribution
	// cannot be computed with. The caller must fix its inputs before retrying.
	ErrConfiguration = errors.New("invalid rebalancing configuration")

	// ErrDataShape indicates the holdings input cannot be read as a table of rows.
	ErrDataShape = errors.New("malformed holdings data")
)

// ConfigurationError describes why a target configuration or contribution was rejected.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Reason)
}

// Unwrap lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// DataShapeError describes a holdings input that is not a table.
// Row is the 1-based source row when known, 0 otherwise.
type DataShapeError struct {
	Reason string
	Row    int
}

func (e *DataShapeError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s: row %d: %s", ErrDataShape.Error(), e.Row, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrDataShape.Error(), e.Reason)
}

// Unwrap lets errors.Is(err, ErrDataShape) match.
func (e *DataShapeError) Unwrap() error {
	return ErrDataShape
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
