package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

// HazardCode is one code of a [HazardCodeSet] together with the scheme the
// taxonomy table placed it in. Scheme is SchemeUnknown for unmatched codes.
type HazardCode struct {
	Value  string
	Scheme taxonomy.Scheme
}

// HazardCodeSet is the ordered, deduplicated hazard code list of a record.
// Position 0 holds the structured code when there is one. Sets are built by
// [Normalizer.Normalize] and are immutable.
type HazardCodeSet struct {
	codes []HazardCode
}

// Codes returns the code values in order. The result is never nil.
func (s HazardCodeSet) Codes() []string {
	out := make([]string, len(s.codes))
	for i, c := range s.codes {
		out[i] = c.Value
	}
	return out
}

// Len returns the number of codes.
func (s HazardCodeSet) Len() int { return len(s.codes) }

// Canonical returns the code that represents the set in a correlation key:
// the first known structured code, else the first known legacy code, else
// the first known database key. Unmatched codes are never canonical.
func (s HazardCodeSet) Canonical() (string, bool) {
	for _, want := range []taxonomy.Scheme{taxonomy.SchemeStructured, taxonomy.SchemeLegacy, taxonomy.SchemeDatabase} {
		for _, c := range s.codes {
			if c.Scheme == want {
				return c.Value, true
			}
		}
	}
	return "", false
}

// MarshalJSON writes the set as a plain string array.
func (s HazardCodeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Codes())
}

// UnmarshalJSON reads a string array. Decoded codes carry no scheme; feed
// them back through a Normalizer before relying on Canonical.
func (s *HazardCodeSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	s.codes = make([]HazardCode, len(values))
	for i, v := range values {
		s.codes[i] = HazardCode{Value: v, Scheme: taxonomy.SchemeUnknown}
	}
	return nil
}

// Normalizer turns raw hazard indicators into a HazardCodeSet using a
// taxonomy table. It holds no mutable state.
type Normalizer struct {
	table *taxonomy.Table
}

func NewNormalizer(table *taxonomy.Table) *Normalizer {
	return &Normalizer{table: table}
}

// Normalize partitions raw codes by the scheme the table knows them under
// and assembles them as structured, legacy, database, then codes matching no
// scheme shape. Within each group known codes come before unmatched ones and
// first-appearance order is kept.
//
// Previous-version structured codes are migrated only when no current
// structured code was supplied; otherwise they are dropped as superseded.
// A migration without a designated chapeau fails with
// taxonomy.ErrAmbiguousTaxonomyMapping.
//
// Hazard-role sets must hold exactly one structured-shaped code and at most
// one legacy and one database code, else ErrInvalidHazardCodeSet. Event and
// impact sets are not capped.
func (n *Normalizer) Normalize(raw []string, role Role) (HazardCodeSet, error) {
	var (
		current, previous []string
		legacy, database  []string
		unmatched         []string
	)
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		code := strings.TrimSpace(r)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		switch n.table.Classify(code) {
		case taxonomy.SchemeStructured:
			current = append(current, code)
		case taxonomy.SchemeLegacyStructured:
			previous = append(previous, code)
		case taxonomy.SchemeLegacy:
			legacy = append(legacy, code)
		case taxonomy.SchemeDatabase:
			database = append(database, code)
		default:
			unmatched = append(unmatched, code)
		}
	}

	if len(current) == 0 {
		for _, code := range previous {
			e, err := n.table.Migrate(code)
			if err != nil {
				return HazardCodeSet{}, err
			}
			if !seen[e.StructuredCode] {
				seen[e.StructuredCode] = true
				current = append(current, e.StructuredCode)
			}
		}
	}

	groups := map[taxonomy.Scheme][]HazardCode{}
	add := func(codes []string, known taxonomy.Scheme) {
		for _, c := range codes {
			shape := taxonomy.PatternOf(c)
			groups[shape] = append(groups[shape], HazardCode{Value: c, Scheme: known})
		}
	}
	add(current, taxonomy.SchemeStructured)
	add(legacy, taxonomy.SchemeLegacy)
	add(database, taxonomy.SchemeDatabase)
	add(unmatched, taxonomy.SchemeUnknown)

	var set HazardCodeSet
	for _, shape := range []taxonomy.Scheme{taxonomy.SchemeStructured, taxonomy.SchemeLegacy, taxonomy.SchemeDatabase, taxonomy.SchemeUnknown} {
		set.codes = append(set.codes, groups[shape]...)
	}

	if role.IsHazard() {
		if err := checkHazardCardinality(groups); err != nil {
			return HazardCodeSet{}, err
		}
	}
	return set, nil
}

func checkHazardCardinality(groups map[taxonomy.Scheme][]HazardCode) error {
	structured := len(groups[taxonomy.SchemeStructured])
	legacy := len(groups[taxonomy.SchemeLegacy])
	database := len(groups[taxonomy.SchemeDatabase])

	switch {
	case structured == 0:
		return fmt.Errorf("%w: hazard record has no structured code", ErrInvalidHazardCodeSet)
	case structured > 1:
		return fmt.Errorf("%w: hazard record has %d structured codes", ErrInvalidHazardCodeSet, structured)
	case legacy > 1:
		return fmt.Errorf("%w: hazard record has %d legacy codes", ErrInvalidHazardCodeSet, legacy)
	case database > 1:
		return fmt.Errorf("%w: hazard record has %d database codes", ErrInvalidHazardCodeSet, database)
	}
	return nil
}
