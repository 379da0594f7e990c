package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/snapquote/internal/errors"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	build := func(c errors.ErrorCategory) error {
		return errors.Newf("failure").Category(c).Build()
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"weights", build(errors.CategoryArtifactNotFound), ExitWeightsNotFound},
		{"source", build(errors.CategoryInputNotFound), ExitSourceNotFound},
		{"scorer", build(errors.CategoryScorerFailure), ExitInferenceError},
		{"model load", build(errors.CategoryModelLoad), ExitInferenceError},
		{"plain", errors.NewStd("boom"), ExitInferenceError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.name)
	}
}

func TestCommandQuoteFlags(t *testing.T) {
	t.Parallel()

	cmd := Command(nil)
	quote := cmd.Flags().Lookup("quote")
	region := cmd.Flags().Lookup("region")
	if assert.NotNil(t, quote) && assert.NotNil(t, region) {
		assert.Equal(t, "false", quote.DefValue)
		assert.Empty(t, region.DefValue)
	}
}
