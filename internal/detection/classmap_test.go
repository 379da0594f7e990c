package detection

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapperDefaults(t *testing.T) {
	t.Parallel()

	table := ClassMap{"2": "bumper", "5": "door"}

	tests := []struct {
		name   string
		mapper *Mapper
		id     int
		want   string
	}{
		{"table hit", NewMapper(table, NamingUnknown), 2, "bumper"},
		{"missing id unknown naming", NewMapper(table, NamingUnknown), 7, "unknown_7"},
		{"missing id class naming", NewMapper(table, NamingClass), 7, "class_7"},
		{"nil table", NewMapper(nil, NamingUnknown), 0, "unknown_0"},
		{"negative id", NewMapper(table, NamingClass), -1, "class_-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.mapper.Map(tt.id))
		})
	}
}

func TestRawName(t *testing.T) {
	t.Parallel()

	m := NewMapper(nil, NamingUnknown)
	assert.Equal(t, "hood", m.RawName(3, "hood"))
	assert.Equal(t, "class_3", m.RawName(3, ""))
}

func TestRelabel(t *testing.T) {
	t.Parallel()

	raw := []RawDetection{
		{ClassID: 2, Confidence: 0.9, ModelLabel: "front_bumper", Box: &Box{1, 2, 3, 4}},
		{ClassID: 9, Confidence: 0.3},
	}

	withTable := NewMapper(ClassMap{"2": "bumper"}, NamingUnknown).Relabel(raw)
	require.Len(t, withTable, 2)
	assert.Equal(t, "front_bumper", withTable[0].RawLabel)
	assert.Equal(t, "bumper", withTable[0].MappedLabel)
	assert.Equal(t, "class_9", withTable[1].RawLabel)
	assert.Equal(t, "unknown_9", withTable[1].MappedLabel)

	identity := NewMapper(nil, NamingUnknown).Relabel(raw)
	assert.Equal(t, "front_bumper", identity[0].MappedLabel)
	assert.Equal(t, "class_9", identity[1].MappedLabel)
}

func TestLoadClassMap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	good := filepath.Join(dir, "class_map.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"0": "hood", "1": "trunk", "7": 42}`), 0o600))
	table := LoadClassMap(good)
	require.NotNil(t, table)
	assert.Equal(t, "hood", table["0"])
	assert.Equal(t, "42", table["7"])

	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"0": `), 0o600))
	assert.Nil(t, LoadClassMap(bad))

	assert.Nil(t, LoadClassMap(filepath.Join(dir, "absent.json")))

	_, err := ParseClassMap([]byte(`{"0": ["a"]}`))
	assert.Error(t, err)
}

func TestDetectionJSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal([]Detection{
		{ClassID: 2, RawLabel: "class_2", MappedLabel: "bumper", Confidence: 0.5, Box: &Box{10, 20, 30, 40}},
		{ClassID: 3, RawLabel: "class_3", MappedLabel: "door", Confidence: 0.25},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"class_id":2,"original_name":"class_2","name":"bumper","confidence":0.5,"box_xyxy":[10,20,30,40]},
		{"class_id":3,"original_name":"class_3","name":"door","confidence":0.25,"box_xyxy":null}
	]`, string(data))
}

func TestBoxIoU(t *testing.T) {
	t.Parallel()

	a := Box{0, 0, 10, 10}
	assert.InDelta(t, 1.0, a.IoU(a), 1e-12)
	assert.InDelta(t, 25.0/175.0, a.IoU(Box{5, 5, 15, 15}), 1e-12)
	assert.Zero(t, a.IoU(Box{20, 20, 30, 30}))
	assert.Zero(t, Box{5, 5, 1, 1}.Area())
}
