package identity

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Overrides is the human-curated mapping from raw source account codes
// to canonical codes, for merges the automatic chain cannot make.
type Overrides struct {
	mapping map[string]string
}

// NewOverrides builds an override table from an in-memory mapping.
func NewOverrides(mapping map[string]string) *Overrides {
	m := make(map[string]string, len(mapping))
	for raw, canonical := range mapping {
		raw = strings.TrimSpace(raw)
		canonical = strings.TrimSpace(canonical)
		if raw == "" || canonical == "" {
			continue
		}
		m[raw] = canonical
	}
	return &Overrides{mapping: m}
}

// LoadOverrides reads the override table from a YAML file of the form:
//
//	overrides:
//	  RAW001_OLD: CANON001
//	  RAW002: CANON001
//
// A missing path yields an empty table, not an error.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return NewOverrides(nil), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("identity: no override file, using empty table",
				zap.String("path", path))
			return NewOverrides(nil), nil
		}
		return nil, eris.Wrapf(err, "identity: read overrides %s", path)
	}

	var doc struct {
		Overrides map[string]string `yaml:"overrides"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "identity: parse overrides %s", path)
	}

	zap.L().Info("identity: loaded override table",
		zap.String("path", path),
		zap.Int("entries", len(doc.Overrides)))
	return NewOverrides(doc.Overrides), nil
}

// Lookup returns the mapped canonical code for a raw code.
func (o *Overrides) Lookup(rawCode string) (string, bool) {
	if o == nil {
		return "", false
	}
	canonical, ok := o.mapping[strings.TrimSpace(rawCode)]
	return canonical, ok
}

// Len reports the number of override entries.
func (o *Overrides) Len() int {
	if o == nil {
		return 0
	}
	return len(o.mapping)
}
