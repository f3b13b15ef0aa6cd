// Package scanconfig loads and validates the scan definition file.
//
// The file (scan.yaml in the config directory) declares the ticker
// universe, the indicators to evaluate with their parameters, the breadth
// aggregates to maintain, and intraday defaults. Every violation maps to
// a scanerr.ConfigError so the CLI can distinguish "bad config" (the only
// non-zero exit) from recoverable runtime failures.
package scanconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ScanFile is the parsed scan.yaml.
type ScanFile struct {
	Universe    []string        `yaml:"universe" validate:"required,min=1,dive,required"`
	HistoryDays int             `yaml:"history_days" default:"400" validate:"gt=0"`
	Indicators  []IndicatorSpec `yaml:"indicators" validate:"required,min=1,dive"`
	Aggregates  AggregateSpec   `yaml:"aggregates"`
	Intraday    IntradaySpec    `yaml:"intraday"`
}

// IndicatorSpec declares one indicator instance to evaluate for every
// universe ticker.
type IndicatorSpec struct {
	ID       string         `yaml:"id" validate:"required"`
	Params   map[string]any `yaml:"params"`
	Criteria *CriteriaSpec  `yaml:"criteria"`
}

// CriteriaSpec narrows which crossover directions a signal reports.
// Direction "up" keeps only crossed_up, "down" only crossed_down, "both"
// (default) keeps both.
type CriteriaSpec struct {
	Series    string  `yaml:"series" default:"value"`
	Level     float64 `yaml:"level"`
	Direction string  `yaml:"direction" default:"both" validate:"oneof=up down both"`
}

// AggregateSpec configures the breadth metrics derived per date.
type AggregateSpec struct {
	NetAdvanceLookbacks []int `yaml:"net_advance_lookbacks" default:"[5,20]" validate:"dive,gt=0"`
}

// IntradaySpec carries intraday-mode defaults; the CLI can override both.
type IntradaySpec struct {
	Interval string `yaml:"interval" default:"5m"`
	MinBars  int    `yaml:"min_bars" default:"24" validate:"gte=0"`
}

// Load reads <dir>/scan.yaml, applies defaults, and validates it.
// All failure paths return a *scanerr.ConfigError.
func Load(dir string) (*ScanFile, error) {
	path := filepath.Join(dir, "scan.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, scanerr.Configf("scan.yaml", "read %s: %v", path, err)
	}
	return Parse(raw)
}

// Parse decodes raw YAML into a validated ScanFile.
func Parse(raw []byte) (*ScanFile, error) {
	var sf ScanFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, scanerr.Configf("scan.yaml", "parse: %v", err)
	}
	if err := defaults.Set(&sf); err != nil {
		return nil, scanerr.Configf("scan.yaml", "defaults: %v", err)
	}
	if err := validate.Struct(&sf); err != nil {
		return nil, asConfigError(err)
	}
	if err := sf.checkTickers(); err != nil {
		return nil, err
	}
	return &sf, nil
}

// checkTickers enforces what validator tags cannot express: uppercase
// symbols without whitespace, and no duplicates.
func (sf *ScanFile) checkTickers() error {
	seen := make(map[string]struct{}, len(sf.Universe))
	for i, tk := range sf.Universe {
		if tk != strings.ToUpper(strings.TrimSpace(tk)) || strings.ContainsAny(tk, " \t") {
			return scanerr.Configf(fmt.Sprintf("universe[%d]", i), "ticker %q must be uppercase with no whitespace", tk)
		}
		if _, dup := seen[tk]; dup {
			return scanerr.Configf(fmt.Sprintf("universe[%d]", i), "duplicate ticker %q", tk)
		}
		seen[tk] = struct{}{}
	}
	return nil
}

// asConfigError flattens validator output into a single ConfigError
// naming the first offending field.
func asConfigError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return scanerr.Configf(e.Namespace(), "failed rule %q", e.Tag())
	}
	return scanerr.Configf("scan.yaml", "validate: %v", err)
}

// IntParam extracts an integer parameter from an indicator's params map,
// accepting the int and float64 shapes YAML decoding produces.
func IntParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// IntSliceParam extracts a list-of-integers parameter.
func IntSliceParam(params map[string]any, key string) ([]int, bool) {
	v, ok := params[key]
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]int, 0, len(items))
	for _, it := range items {
		switch n := it.(type) {
		case int:
			out = append(out, n)
		case int64:
			out = append(out, int(n))
		case float64:
			out = append(out, int(n))
		default:
			return nil, false
		}
	}
	return out, true
}
