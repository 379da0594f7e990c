package inference

import (
	"cmp"
	"slices"

	"github.com/tphakala/snapquote/internal/detection"
)

// DefaultIoU is the overlap above which a weaker box of the same class is
// suppressed.
const DefaultIoU = 0.45

// MaxDetections caps the boxes kept per image.
const MaxDetections = 300

// candidate is one decoded box before suppression.
type candidate struct {
	classID    int
	confidence float64
	box        detection.Box
}

// nonMaxSuppression keeps the strongest box of every overlapping cluster,
// comparing only boxes of the same class. Output is sorted by descending
// confidence and capped at limit.
func nonMaxSuppression(cands []candidate, iou float64, limit int) []candidate {
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b candidate) int {
		return cmp.Compare(b.confidence, a.confidence)
	})

	kept := make([]candidate, 0, min(len(sorted), limit))
	for _, c := range sorted {
		if len(kept) >= limit {
			break
		}
		suppressed := false
		for _, k := range kept {
			if k.classID == c.classID && k.box.IoU(c.box) > iou {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}
