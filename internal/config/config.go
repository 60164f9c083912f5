// Package config holds the tunable limits of a calculation run as a
// plain const-table-plus-struct. There is no file/env loader: the
// engine has no persisted state, so a Config is always either
// Default() or built programmatically by a caller; the CLI uses
// Default().
package config

import "github.com/go-playground/validator/v10"

// Default tunables: XIRR's Newton-Raphson loop and a sanity guard
// against pathological, unbounded workbooks. The XIRR values equal the
// constants internal/function's XIRR uses; that function does not read
// a Config, so XIRRMaxIterations and XIRRTolerance have no effect on
// it. MaxGraphNodes and MaxCalculationPasses are read by
// internal/workbook.
const (
	DefaultXIRRMaxIterations    = 50
	DefaultXIRRTolerance        = 1e-7
	DefaultMaxGraphNodes        = 1_000_000
	DefaultMaxCalculationPasses = 100
)

// Config bounds a single workbook calculation run.
type Config struct {
	XIRRMaxIterations    int     `validate:"required,gt=0,lte=10000"`
	XIRRTolerance        float64 `validate:"required,gt=0"`
	MaxGraphNodes        int     `validate:"required,gt=0"`
	MaxCalculationPasses int     `validate:"required,gt=0"`
}

// Default returns the engine's default tunables.
func Default() Config {
	return Config{
		XIRRMaxIterations:    DefaultXIRRMaxIterations,
		XIRRTolerance:        DefaultXIRRTolerance,
		MaxGraphNodes:        DefaultMaxGraphNodes,
		MaxCalculationPasses: DefaultMaxCalculationPasses,
	}
}

var validate = validator.New()

// Validate checks that c's fields are within their documented bounds.
func (c Config) Validate() error {
	return validate.Struct(c)
}
