package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError names the field that failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failure found by Validate, so a caller
// sees the whole picture instead of stopping at the first problem.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// ErrUnsupportedSchema is returned when a record's schema_version isn't one
// this build knows how to read.
var ErrUnsupportedSchema = errors.New("unsupported schema version")

// SupportedSchemaVersions lists schema versions this registry can load.
var SupportedSchemaVersions = []string{"1.0"}

// Validate checks a Definition's structural invariants: non-empty
// identifying fields, at least one market/symbol/timeframe, and
// well-formed parameter ranges.
func (d Definition) Validate() error {
	var errs ValidationErrors

	if d.ID == "" {
		errs = append(errs, ValidationError{"id", "must not be empty"})
	}
	if d.Name == "" {
		errs = append(errs, ValidationError{"name", "must not be empty"})
	}
	if d.Version == "" {
		errs = append(errs, ValidationError{"version", "must not be empty"})
	}
	if len(d.Markets) == 0 {
		errs = append(errs, ValidationError{"markets", "must specify at least one market"})
	}
	if len(d.Symbols) == 0 {
		errs = append(errs, ValidationError{"symbols", "must specify at least one symbol"})
	}
	if len(d.Timeframes) == 0 {
		errs = append(errs, ValidationError{"timeframes", "must specify at least one timeframe"})
	}
	for name, r := range d.ParameterRanges {
		if r.Min > r.Max {
			errs = append(errs, ValidationError{fmt.Sprintf("parameter_ranges.%s", name), "min must not exceed max"})
		}
		if r.Step <= 0 {
			errs = append(errs, ValidationError{fmt.Sprintf("parameter_ranges.%s", name), "step must be positive"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func supportedSchema(version string) bool {
	for _, v := range SupportedSchemaVersions {
		if v == version {
			return true
		}
	}
	return false
}

// Validate checks a Record's schema version and nested Definition.
func (r Record) Validate() error {
	var errs ValidationErrors

	if !supportedSchema(r.SchemaVersion) {
		errs = append(errs, ValidationError{"schema_version", fmt.Sprintf("unsupported version %q", r.SchemaVersion)})
	}
	if r.ID == "" {
		errs = append(errs, ValidationError{"id", "must not be empty"})
	}
	switch r.Level {
	case L0Incubate, L1Backtest, L2Paper, L3Live, Killed:
	default:
		errs = append(errs, ValidationError{"level", fmt.Sprintf("unknown level %q", r.Level)})
	}
	if err := r.Definition.Validate(); err != nil {
		if ve, ok := err.(ValidationErrors); ok {
			errs = append(errs, ve...)
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
