package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		ctx       *Context
		version   string
		buildDate string
	}{
		{"nil context", nil, UnknownValue, UnknownValue},
		{"empty fields", NewContext("", ""), UnknownValue, UnknownValue},
		{"populated", NewContext("1.0.0-beta.1", "2026-10-01"), "1.0.0-beta.1", "2026-10-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.version, tt.ctx.GetVersion())
			assert.Equal(t, tt.buildDate, tt.ctx.GetBuildDate())
		})
	}

	assert.Equal(t, "2.1.0 (built unknown)", NewContext("2.1.0", "").String())
}
