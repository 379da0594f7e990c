package detection

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/tphakala/snapquote/internal/errors"
	"github.com/tphakala/snapquote/internal/logger"
)

// ClassMap maps string class ids to display labels. A nil ClassMap means no
// table was loaded.
type ClassMap map[string]string

// Lookup returns the label for id if the table has one.
func (m ClassMap) Lookup(id int) (string, bool) {
	if m == nil {
		return "", false
	}
	label, ok := m[strconv.Itoa(id)]
	return label, ok
}

// LoadClassMap reads a JSON object of class id to label. A missing or
// unreadable file yields a nil table: relabelling degrades, it never fails.
func LoadClassMap(path string) ClassMap {
	log := GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("class map not present", logger.String("path", path))
		} else {
			log.Warn("class map unreadable, using default names", logger.String("path", path), logger.Error(err))
		}
		return nil
	}

	table, err := ParseClassMap(data)
	if err != nil {
		log.Warn("class map malformed, using default names", logger.String("path", path), logger.Error(err))
		return nil
	}
	log.Debug("class map loaded", logger.String("path", path), logger.Int("entries", len(table)))
	return table
}

// ParseClassMap decodes a class map. Numeric values are accepted and
// rendered as strings.
func ParseClassMap(data []byte) (ClassMap, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileParsing).
			Context("artifact_kind", "classmap").
			Build()
	}

	table := make(ClassMap, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			table[k] = val
		case float64:
			table[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			return nil, errors.Newf("class map entry %q has unsupported value %v", k, v).
				Category(errors.CategoryFileParsing).
				Build()
		}
	}
	return table, nil
}

// DefaultNaming selects the generated name for ids the table lacks.
type DefaultNaming int

const (
	NamingUnknown DefaultNaming = iota // unknown_<id>
	NamingClass                        // class_<id>
)

func (n DefaultNaming) name(id int) string {
	if n == NamingClass {
		return fmt.Sprintf("class_%d", id)
	}
	return fmt.Sprintf("unknown_%d", id)
}

// Mapper turns class ids into labels.
type Mapper struct {
	Table   ClassMap
	Default DefaultNaming
}

// NewMapper returns a Mapper over table using naming for missing ids.
func NewMapper(table ClassMap, naming DefaultNaming) *Mapper {
	return &Mapper{Table: table, Default: naming}
}

// Map returns the table label for id or the default pattern.
func (m *Mapper) Map(id int) string {
	if label, ok := m.Table.Lookup(id); ok {
		return label
	}
	return m.Default.name(id)
}

// RawName returns the model's own name for id, or class_<id>.
func (m *Mapper) RawName(id int, modelLabel string) string {
	if modelLabel != "" {
		return modelLabel
	}
	return NamingClass.name(id)
}

// Relabel converts raw backend detections into reported detections. With no
// table loaded the mapped label is the raw name.
func (m *Mapper) Relabel(raw []RawDetection) []Detection {
	out := make([]Detection, 0, len(raw))
	for _, r := range raw {
		rawName := m.RawName(r.ClassID, r.ModelLabel)
		mapped := rawName
		if m.Table != nil {
			mapped = m.Map(r.ClassID)
		}
		out = append(out, Detection{
			ClassID:     r.ClassID,
			RawLabel:    rawName,
			MappedLabel: mapped,
			Confidence:  r.Confidence,
			Box:         r.Box,
		})
	}
	return out
}
