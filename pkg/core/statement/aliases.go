package statement

import (
	_ "embed"
	"fmt"
	"sort"

	"dart_screener/pkg/models"

	"gopkg.in/yaml.v2"
)

//go:embed aliases.yaml
var defaultAliasData []byte

var defaultAliases = mustLoadAliases(defaultAliasData)

// AliasTable maps each canonical field to its accepted account names,
// pre-normalized, in preference order.
type AliasTable struct {
	names  map[models.Field][]string
	fields map[string]models.Field
}

// DefaultAliases returns the embedded alias table.
func DefaultAliases() *AliasTable {
	return defaultAliases
}

// LoadAliases parses a YAML alias table. Unknown field names, empty alias
// lists and names claimed by two fields are rejected.
func LoadAliases(data []byte) (*AliasTable, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}

	t := &AliasTable{
		names:  make(map[models.Field][]string, len(raw)),
		fields: make(map[string]models.Field),
	}
	for key, names := range raw {
		field, err := models.ParseField(key)
		if err != nil {
			return nil, fmt.Errorf("alias table: %w", err)
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("alias table: field %q has no account names", key)
		}
		normalized := make([]string, 0, len(names))
		for _, n := range names {
			n = Normalize(n)
			if other, dup := t.fields[n]; dup && other != field {
				return nil, fmt.Errorf("alias table: %q listed under %s and %s", n, other, field)
			}
			t.fields[n] = field
			normalized = append(normalized, n)
		}
		t.names[field] = normalized
	}
	return t, nil
}

func mustLoadAliases(data []byte) *AliasTable {
	t, err := LoadAliases(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Fields returns the fields covered by the table in enum order.
func (t *AliasTable) Fields() []models.Field {
	out := make([]models.Field, 0, len(t.names))
	for f := range t.names {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Names returns the normalized account names for f.
func (t *AliasTable) Names(f models.Field) []string {
	return t.names[f]
}

// Resolve returns the field an account name is listed under.
func (t *AliasTable) Resolve(name string) (models.Field, bool) {
	f, ok := t.fields[Normalize(name)]
	return f, ok
}
