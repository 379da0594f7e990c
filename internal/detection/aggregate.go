package detection

// Batch is the reported result of one detection run.
type Batch struct {
	DistinctLabels []string    `json:"parts"`
	Detections     []Detection `json:"detections"`
	ConfidenceUsed float64     `json:"confidence_used"`
	Source         string      `json:"image"`
}

// Aggregate assembles a Batch. DistinctLabels keeps each mapped label at its
// first position; Detections is kept whole.
func Aggregate(dets []Detection, confidenceUsed float64, source string) Batch {
	labels := make([]string, 0, len(dets))
	seen := make(map[string]struct{}, len(dets))
	for i := range dets {
		label := dets[i].MappedLabel
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	if dets == nil {
		dets = []Detection{}
	}

	return Batch{
		DistinctLabels: labels,
		Detections:     dets,
		ConfidenceUsed: confidenceUsed,
		Source:         source,
	}
}
