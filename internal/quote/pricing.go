package quote

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

//go:embed default_pricing.json
var defaultPricing []byte

// DefaultCurrency is used when a pricing table does not name one.
const DefaultCurrency = "INR"

// Fallbacks for part entries that leave a field unset.
const (
	DefaultRepairThreshold = 0.3
	DefaultRepairShare     = 0.4 // repair cost as a share of the aftermarket price
	DefaultComplexity      = "medium"
)

// RepairCosts holds labour prices for repairing a part in place.
type RepairCosts struct {
	GeneralRepair float64 `json:"general_repair" yaml:"general_repair"`
}

// RepairHours is the base labour time per severity level.
type RepairHours struct {
	Minor    float64 `json:"minor" yaml:"minor"`
	Moderate float64 `json:"moderate" yaml:"moderate"`
	Severe   float64 `json:"severe" yaml:"severe"`
}

var defaultRepairHours = RepairHours{Minor: 2, Moderate: 4, Severe: 8}

// PartPricing is the price sheet of one part. OEM and Aftermarket fall back
// to Max and Min when zero.
type PartPricing struct {
	OEM             float64      `json:"oem" yaml:"oem"`
	Aftermarket     float64      `json:"aftermarket" yaml:"aftermarket"`
	Min             float64      `json:"min" yaml:"min"`
	Max             float64      `json:"max" yaml:"max"`
	RepairThreshold float64      `json:"repair_threshold" yaml:"repair_threshold"`
	Repair          *RepairCosts `json:"repair,omitempty" yaml:"repair,omitempty"`
	RepairTimeHours *RepairHours `json:"repair_time_hours,omitempty" yaml:"repair_time_hours,omitempty"`
	Complexity      string       `json:"complexity" yaml:"complexity"`
}

func (p PartPricing) oemPrice() float64 {
	if p.OEM > 0 {
		return p.OEM
	}
	return p.Max
}

func (p PartPricing) aftermarketPrice() float64 {
	if p.Aftermarket > 0 {
		return p.Aftermarket
	}
	return p.Min
}

func (p PartPricing) repairCost() float64 {
	if p.Repair != nil && p.Repair.GeneralRepair > 0 {
		return p.Repair.GeneralRepair
	}
	return p.aftermarketPrice() * DefaultRepairShare
}

func (p PartPricing) repairThreshold() float64 {
	if p.RepairThreshold > 0 {
		return p.RepairThreshold
	}
	return DefaultRepairThreshold
}

func (p PartPricing) hours() RepairHours {
	if p.RepairTimeHours != nil {
		return *p.RepairTimeHours
	}
	return defaultRepairHours
}

func (p PartPricing) complexity() string {
	if p.Complexity != "" {
		return strings.ToLower(p.Complexity)
	}
	return DefaultComplexity
}

// Table is a pricing table: per-part sheets, a default sheet for unlisted
// parts and regional price multipliers.
type Table struct {
	Currency string                 `json:"currency" yaml:"currency"`
	Version  string                 `json:"version" yaml:"version"`
	Defaults PartPricing            `json:"defaults" yaml:"defaults"`
	Parts    map[string]PartPricing `json:"parts" yaml:"parts"`
	Regions  map[string]float64     `json:"region_multipliers" yaml:"region_multipliers"`
}

// Lookup returns the sheet for part, matched case-insensitively, or the
// default sheet.
func (t *Table) Lookup(part string) (PartPricing, bool) {
	if p, ok := t.Parts[strings.ToLower(strings.TrimSpace(part))]; ok {
		return p, true
	}
	return t.Defaults, false
}

// Multiplier returns the price multiplier of region, 1 when the region is
// empty or unlisted.
func (t *Table) Multiplier(region string) float64 {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return 1
	}
	if m, ok := t.Regions[region]; ok && m > 0 {
		return m
	}
	if m, ok := t.Regions["default"]; ok && m > 0 {
		return m
	}
	return 1
}

// Default returns the built-in pricing table.
func Default() *Table {
	t, err := ParseTable(defaultPricing, "json")
	if err != nil {
		panic(fmt.Sprintf("built-in pricing table is invalid: %v", err))
	}
	return t
}

// LoadTable reads a pricing table. Files ending in .yaml or .yml are decoded
// as YAML, everything else as JSON.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Context("artifact_kind", "pricing").
			FileContext(path, 0).
			Build()
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}

	t, err := ParseTable(data, format)
	if err != nil {
		return nil, err
	}
	GetLogger().Debug("pricing table loaded",
		logger.String("path", path),
		logger.String("version", t.Version),
		logger.Int("parts", len(t.Parts)))
	return t, nil
}

// ParseTable decodes and validates a pricing table in the given format,
// "json" or "yaml". Part and region keys are lower-cased.
func ParseTable(data []byte, format string) (*Table, error) {
	var t Table
	var err error
	if format == "yaml" {
		err = yaml.Unmarshal(data, &t)
	} else {
		err = json.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("artifact_kind", "pricing").
			Context("format", format).
			Build()
	}

	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
	t.Parts = lowerKeys(t.Parts)
	t.Regions = lowerKeys(t.Regions)

	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Table) validate() error {
	var problems []string
	check := func(name string, p PartPricing) {
		if p.OEM < 0 || p.Aftermarket < 0 || p.Min < 0 || p.Max < 0 {
			problems = append(problems, name+": negative price")
		}
		if p.RepairThreshold < 0 || p.RepairThreshold > 1 {
			problems = append(problems, name+": repair_threshold outside [0, 1]")
		}
		if p.Repair != nil && p.Repair.GeneralRepair < 0 {
			problems = append(problems, name+": negative repair cost")
		}
	}
	check("defaults", t.Defaults)
	for name, p := range t.Parts {
		check(name, p)
	}
	for name, m := range t.Regions {
		if m < 0 {
			problems = append(problems, "region "+name+": negative multiplier")
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.Newf("invalid pricing table: %s", strings.Join(problems, "; ")).
		Category(errors.CategoryValidation).
		Context("artifact_kind", "pricing").
		Build()
}

func lowerKeys[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
