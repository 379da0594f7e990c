// Package quote prices the parts found by a detection run: per part it
// estimates damage severity, recommends repair or replacement and estimates
// labour time, then totals the result.
package quote

import (
	"math"

	"github.com/tphakala/snapquote/internal/detection"
)

// Severity bounds. A part with no detections gets DefaultSeverity.
const (
	DefaultSeverity = 0.3
	MinSeverity     = 0.1
	MaxSeverity     = 0.9
)

const (
	moderateSeverity     = 0.6 // upper bound of the moderate band
	saturatingCount      = 5   // detections at which the count term saturates
	repairRatioLimit     = 0.7 // repair/replace ratio under which moderate damage is repaired
	moderateRepairMarkup = 1.2
	workdayHours         = 8
)

// Recommendation values.
const (
	Repair  = "repair"
	Replace = "replace"
)

// Severity levels.
const (
	LevelMinor    = "minor"
	LevelModerate = "moderate"
	LevelSevere   = "severe"
)

// Recommendation is the repair or replace decision for one part.
type Recommendation struct {
	Action        string `json:"recommendation"`
	Reason        string `json:"reason"`
	Level         string `json:"severity_level"`
	EstimatedCost int64  `json:"-"` // before the region multiplier
}

// TimeEstimate is the labour estimate for one part.
type TimeEstimate struct {
	Hours      int    `json:"hours"`
	Days       int    `json:"days"`
	Complexity string `json:"complexity"`
}

// Line is the priced entry of one detected part. Prices include the region
// multiplier.
type Line struct {
	Part             string `json:"part"`
	Listed           bool   `json:"listed"` // false when priced from the default sheet
	Severity         int    `json:"severity"`
	OEMPrice         int64  `json:"oem_price"`
	AftermarketPrice int64  `json:"aftermarket_price"`
	RepairCost       int64  `json:"repair_cost"`
	Savings          int64  `json:"savings"`
	SavingsPercent   int    `json:"savings_percent"`
	RepairSavings    int64  `json:"repair_vs_replace_savings"`
	Recommendation
	Time TimeEstimate `json:"estimated_time"`
}

// Quote is the priced result of one detection batch. Total is the
// aftermarket total.
type Quote struct {
	Currency            string  `json:"currency"`
	Region              string  `json:"region"`
	Multiplier          float64 `json:"multiplier"`
	Version             string  `json:"pricing_version,omitempty"`
	Lines               []Line  `json:"lines"`
	TotalOEM            int64   `json:"total_oem"`
	TotalAftermarket    int64   `json:"total_aftermarket"`
	TotalRepair         int64   `json:"total_repair"`
	TotalSavings        int64   `json:"total_savings"`
	TotalSavingsPercent int     `json:"total_savings_percent"`
	EstimatedDays       int     `json:"estimated_days"`
	Total               int64   `json:"total"`
}

// Severity scores the damage of part from its detections in [MinSeverity,
// MaxSeverity]: 0.7 of the mean confidence plus 0.3 of the detection count
// relative to saturatingCount.
func Severity(dets []detection.Detection, part string) float64 {
	var sum float64
	var n int
	for i := range dets {
		if dets[i].MappedLabel == part {
			sum += dets[i].Confidence
			n++
		}
	}
	if n == 0 {
		return DefaultSeverity
	}

	mean := sum / float64(n)
	count := min(float64(n)/saturatingCount, 1)
	return min(max(mean*0.7+count*0.3, MinSeverity), MaxSeverity)
}

// Recommend decides between repair and replacement. Minor damage, up to the
// part's repair threshold, is always repaired; severe damage is always
// replaced; moderate damage is repaired when repairing costs under 70% of
// replacing.
func Recommend(severity float64, p PartPricing) Recommendation {
	repair := p.repairCost()
	replace := p.aftermarketPrice()

	switch {
	case severity <= p.repairThreshold():
		return Recommendation{
			Action:        Repair,
			Reason:        "Minor damage, cost-effective to repair",
			Level:         LevelMinor,
			EstimatedCost: round(repair),
		}
	case severity <= moderateSeverity:
		if replace > 0 && repair/replace < repairRatioLimit {
			return Recommendation{
				Action:        Repair,
				Reason:        "Moderate damage, repair is more economical",
				Level:         LevelModerate,
				EstimatedCost: round(repair * moderateRepairMarkup),
			}
		}
		return Recommendation{
			Action:        Replace,
			Reason:        "Moderate damage, replacement offers better value",
			Level:         LevelModerate,
			EstimatedCost: round(replace),
		}
	default:
		return Recommendation{
			Action:        Replace,
			Reason:        "Severe damage, replacement recommended for safety and reliability",
			Level:         LevelSevere,
			EstimatedCost: round(replace),
		}
	}
}

// RepairTime estimates labour. The base hours come from the severity band,
// scaled by complexity (high 1.3, low 0.8) and by 0.9 for replacements.
// Days assume eight-hour workdays, at least one.
func RepairTime(severity float64, p PartPricing, action string) TimeEstimate {
	h := p.hours()
	var base float64
	switch {
	case severity <= DefaultSeverity:
		base = h.Minor
	case severity <= moderateSeverity:
		base = h.Moderate
	default:
		base = h.Severe
	}

	complexity := p.complexity()
	mult := 1.0
	switch complexity {
	case "high":
		mult = 1.3
	case "low":
		mult = 0.8
	}
	if action == Replace {
		mult *= 0.9
	}

	hours := int(math.Round(base * mult))
	days := max((hours+workdayHours-1)/workdayHours, 1)
	return TimeEstimate{Hours: hours, Days: days, Complexity: complexity}
}

// Estimate prices every distinct part of batch with table, applying the
// multiplier of region.
func Estimate(batch detection.Batch, table *Table, region string) Quote {
	mult := table.Multiplier(region)
	q := Quote{
		Currency:   table.Currency,
		Region:     region,
		Multiplier: mult,
		Version:    table.Version,
		Lines:      make([]Line, 0, len(batch.DistinctLabels)),
	}
	if q.Region == "" {
		q.Region = "default"
	}

	for _, part := range batch.DistinctLabels {
		sheet, listed := table.Lookup(part)
		severity := Severity(batch.Detections, part)
		rec := Recommend(severity, sheet)

		line := Line{
			Part:             part,
			Listed:           listed,
			Severity:         int(math.Round(severity * 100)),
			OEMPrice:         round(sheet.oemPrice() * mult),
			AftermarketPrice: round(sheet.aftermarketPrice() * mult),
			RepairCost:       round(float64(rec.EstimatedCost) * mult),
			Recommendation:   rec,
			Time:             RepairTime(severity, sheet, rec.Action),
		}
		line.Savings = line.OEMPrice - line.AftermarketPrice
		line.SavingsPercent = percent(line.Savings, line.OEMPrice)
		line.RepairSavings = line.AftermarketPrice - line.RepairCost

		q.Lines = append(q.Lines, line)
		q.TotalOEM += line.OEMPrice
		q.TotalAftermarket += line.AftermarketPrice
		q.TotalRepair += line.RepairCost
		q.EstimatedDays = max(q.EstimatedDays, line.Time.Days)
	}

	q.TotalSavings = q.TotalOEM - q.TotalAftermarket
	q.TotalSavingsPercent = percent(q.TotalSavings, q.TotalOEM)
	q.Total = q.TotalAftermarket
	return q
}

func round(v float64) int64 {
	return int64(math.Round(v))
}

// percent returns part/whole as a rounded percentage, 0 for an empty whole.
func percent(part, whole int64) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
