package detection

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateKeepsFirstSeenOrder(t *testing.T) {
	t.Parallel()

	dets := []Detection{
		{ClassID: 5, MappedLabel: "door"},
		{ClassID: 2, MappedLabel: "bumper"},
		{ClassID: 5, MappedLabel: "door"},
		{ClassID: 8, MappedLabel: "mirror"},
		{ClassID: 2, MappedLabel: "bumper"},
	}

	b := Aggregate(dets, 0.25, "car.jpg")
	assert.Equal(t, []string{"door", "bumper", "mirror"}, b.DistinctLabels)
	assert.Len(t, b.Detections, 5)
	assert.InDelta(t, 0.25, b.ConfidenceUsed, 1e-12)
	assert.Equal(t, "car.jpg", b.Source)
}

func TestAggregateEmptyEncodesArrays(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Aggregate(nil, 0.05, "blank.png"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"parts":[],"detections":[],"confidence_used":0.05,"image":"blank.png"}`, string(data))
}

func TestAggregateDedupProperty(t *testing.T) {
	t.Parallel()

	labels := []string{"hood", "door", "bumper", "trunk", "mirror"}
	rng := rand.New(rand.NewPCG(7, 11))
	for range 200 {
		n := rng.IntN(20)
		dets := make([]Detection, n)
		for i := range dets {
			dets[i] = Detection{MappedLabel: labels[rng.IntN(len(labels))]}
		}

		b := Aggregate(dets, 0.25, "x")
		assert.LessOrEqual(t, len(b.DistinctLabels), len(dets))
		assert.Len(t, b.Detections, n)

		seen := map[string]bool{}
		next := 0
		for _, d := range dets {
			if seen[d.MappedLabel] {
				continue
			}
			seen[d.MappedLabel] = true
			require.Less(t, next, len(b.DistinctLabels))
			assert.Equal(t, d.MappedLabel, b.DistinctLabels[next])
			next++
		}
		assert.Equal(t, next, len(b.DistinctLabels))
	}
}

// Pass 1 at 0.25 finds nothing, pass 2 at 0.05 finds ids 2, 2, 5.
func TestFallbackScenarioEndToEnd(t *testing.T) {
	t.Parallel()

	scorer := &scriptedScorer{byThreshold: map[float64][]RawDetection{
		0.05: {
			{ClassID: 2, Confidence: 0.09},
			{ClassID: 2, Confidence: 0.07},
			{ClassID: 5, Confidence: 0.06},
		},
	}}

	out, err := NewRetryController(scorer, DefaultRetryPolicy()).Run(context.Background(), "car.jpg", nil)
	require.NoError(t, err)

	mapper := NewMapper(ClassMap{"2": "bumper", "5": "door"}, NamingUnknown)
	b := Aggregate(mapper.Relabel(out.Detections), out.ConfidenceUsed, "car.jpg")

	assert.Equal(t, []string{"bumper", "door"}, b.DistinctLabels)
	assert.InDelta(t, 0.05, b.ConfidenceUsed, 1e-12)
	assert.Len(t, b.Detections, 3)
}
