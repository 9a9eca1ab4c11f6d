package taxonomy

import (
	"errors"
	"fmt"
)

var (
	// ErrTaxonomyBuild marks a reference dataset that cannot be turned into a
	// table. It is fatal at startup.
	ErrTaxonomyBuild = errors.New("taxonomy build failed")

	// ErrAmbiguousTaxonomyMapping is returned when a code maps to several
	// current structured codes and none of them is the designated chapeau.
	ErrAmbiguousTaxonomyMapping = errors.New("ambiguous taxonomy mapping")

	// ErrUnknownCode is returned when a code is absent from every index.
	ErrUnknownCode = errors.New("unknown hazard code")

	// ErrNoStructuredCode is returned when a code is known but only through
	// legacy-only rows that carry no structured code.
	ErrNoStructuredCode = errors.New("no structured code for hazard code")
)

// Entry is one row of the reference table.
type Entry struct {
	StructuredCode       string
	LegacyStructuredCode string
	Label                string
	ClusterLabel         string
	FamilyLabel          string
	LegacyCode           string
	DatabaseKey          string
	// Chapeau marks the umbrella row chosen when a legacy code or a
	// previous-version structured code has to resolve to a single row.
	Chapeau bool
}

// Table is the immutable hazard taxonomy. All indices are built by [Load]
// and never modified, so a *Table is safe for concurrent use.
type Table struct {
	entries []Entry

	byStructured       map[string]int
	byLegacyStructured map[string][]int
	byLegacy           map[string][]int
	byDatabase         map[string][]int
}

func newTable(entries []Entry) (*Table, error) {
	t := &Table{
		entries:            entries,
		byStructured:       make(map[string]int, len(entries)),
		byLegacyStructured: make(map[string][]int),
		byLegacy:           make(map[string][]int),
		byDatabase:         make(map[string][]int),
	}

	for i, e := range entries {
		if e.StructuredCode != "" {
			if prev, ok := t.byStructured[e.StructuredCode]; ok {
				return nil, fmt.Errorf("%w: duplicate structured code %q (rows %d and %d)", ErrTaxonomyBuild, e.StructuredCode, prev+1, i+1)
			}
			t.byStructured[e.StructuredCode] = i
			if e.LegacyStructuredCode != "" {
				t.byLegacyStructured[e.LegacyStructuredCode] = append(t.byLegacyStructured[e.LegacyStructuredCode], i)
			}
		}
		if e.LegacyCode != "" {
			t.byLegacy[e.LegacyCode] = append(t.byLegacy[e.LegacyCode], i)
		}
		if e.DatabaseKey != "" {
			t.byDatabase[e.DatabaseKey] = append(t.byDatabase[e.DatabaseKey], i)
		}
	}

	for code, idx := range t.byLegacy {
		if err := t.checkSingleChapeau("legacy code", code, idx); err != nil {
			return nil, err
		}
	}
	for code, idx := range t.byLegacyStructured {
		if err := t.checkSingleChapeau("legacy structured code", code, idx); err != nil {
			return nil, err
		}
	}
	for key, idx := range t.byDatabase {
		if err := t.checkSingleChapeau("database key", key, idx); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) checkSingleChapeau(kind, code string, idx []int) error {
	var chapeaus []string
	for _, i := range idx {
		if t.entries[i].Chapeau {
			chapeaus = append(chapeaus, t.entries[i].StructuredCode)
		}
	}
	if len(chapeaus) > 1 {
		return fmt.Errorf("%w: %s %q has %d chapeau rows %v", ErrTaxonomyBuild, kind, code, len(chapeaus), chapeaus)
	}
	return nil
}

// Len returns the number of rows in the table.
func (t *Table) Len() int { return len(t.entries) }

// LookupByStructured returns the row for a current structured code.
func (t *Table) LookupByStructured(code string) (Entry, bool) {
	i, ok := t.byStructured[code]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// LookupByLegacy returns every row carrying the legacy code, in file order.
// Legacy-only rows without a structured code are included.
func (t *Table) LookupByLegacy(code string) []Entry {
	return t.collect(t.byLegacy[code])
}

// LookupByLegacyStructured returns the current rows that a previous-version
// structured code migrated to, in file order.
func (t *Table) LookupByLegacyStructured(code string) []Entry {
	return t.collect(t.byLegacyStructured[code])
}

// LookupByDatabaseKey returns the row for a database key. A key shared by
// several rows resolves to their chapeau row and is not found without one.
func (t *Table) LookupByDatabaseKey(key string) (Entry, bool) {
	return t.designated(t.byDatabase[key])
}

// ResolveDatabaseKey is [Table.LookupByDatabaseKey] with the reason for a
// miss: [ErrUnknownCode] or [ErrAmbiguousTaxonomyMapping].
func (t *Table) ResolveDatabaseKey(key string) (Entry, error) {
	idx, ok := t.byDatabase[key]
	if !ok {
		return Entry{}, fmt.Errorf("%w: database key %q", ErrUnknownCode, key)
	}
	e, ok := t.designated(idx)
	if !ok {
		return Entry{}, fmt.Errorf("%w: database key %q maps to %d rows without a chapeau", ErrAmbiguousTaxonomyMapping, key, len(idx))
	}
	return e, nil
}

// ResolveLegacy maps a 2-letter legacy code to one current structured row.
// A single candidate is returned as is; several candidates resolve to the
// designated chapeau or fail with [ErrAmbiguousTaxonomyMapping].
func (t *Table) ResolveLegacy(code string) (Entry, error) {
	idx, ok := t.byLegacy[code]
	if !ok {
		return Entry{}, fmt.Errorf("%w: legacy code %q", ErrUnknownCode, code)
	}
	var structured []int
	for _, i := range idx {
		if t.entries[i].StructuredCode != "" {
			structured = append(structured, i)
		}
	}
	if len(structured) == 0 {
		return Entry{}, fmt.Errorf("%w: legacy code %q", ErrNoStructuredCode, code)
	}
	e, ok := t.designated(structured)
	if !ok {
		return Entry{}, fmt.Errorf("%w: legacy code %q maps to %d structured codes without a chapeau", ErrAmbiguousTaxonomyMapping, code, len(structured))
	}
	return e, nil
}

// Migrate maps a previous-version structured code to its current row,
// following the same chapeau rule as [Table.ResolveLegacy]. Current codes
// migrate to themselves.
func (t *Table) Migrate(code string) (Entry, error) {
	if e, ok := t.LookupByStructured(code); ok {
		return e, nil
	}
	idx, ok := t.byLegacyStructured[code]
	if !ok {
		return Entry{}, fmt.Errorf("%w: structured code %q", ErrUnknownCode, code)
	}
	e, ok := t.designated(idx)
	if !ok {
		return Entry{}, fmt.Errorf("%w: structured code %q maps to %d current codes without a chapeau", ErrAmbiguousTaxonomyMapping, code, len(idx))
	}
	return e, nil
}

// Classify reports which scheme a code belongs to. A code counts as known
// only when its shape matches a scheme and the table indexes it there.
func (t *Table) Classify(code string) Scheme {
	switch PatternOf(code) {
	case SchemeStructured:
		if _, ok := t.byStructured[code]; ok {
			return SchemeStructured
		}
		if _, ok := t.byLegacyStructured[code]; ok {
			return SchemeLegacyStructured
		}
	case SchemeLegacy:
		if _, ok := t.byLegacy[code]; ok {
			return SchemeLegacy
		}
	case SchemeDatabase:
		if _, ok := t.byDatabase[code]; ok {
			return SchemeDatabase
		}
	}
	return SchemeUnknown
}

// Describe returns the row that best explains a code of any scheme. Codes
// that only resolve ambiguously are not described.
func (t *Table) Describe(code string) (Entry, bool) {
	switch t.Classify(code) {
	case SchemeStructured:
		return t.LookupByStructured(code)
	case SchemeLegacyStructured:
		return t.designated(t.byLegacyStructured[code])
	case SchemeLegacy:
		return t.designated(t.byLegacy[code])
	case SchemeDatabase:
		return t.LookupByDatabaseKey(code)
	default:
		return Entry{}, false
	}
}

// ClusterKey returns the database key shared by most of the codes, the first
// one seen winning ties. A 2-letter code unknown to the table counts as its
// own cluster. It returns false when no code contributes a cluster.
func (t *Table) ClusterKey(codes []string) (string, bool) {
	counts := make(map[string]int)
	var order []string
	for _, code := range codes {
		key := t.clusterOf(code)
		if key == "" {
			continue
		}
		if counts[key] == 0 {
			order = append(order, key)
		}
		counts[key]++
	}

	best, bestCount := "", 0
	for _, key := range order {
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best, bestCount > 0
}

func (t *Table) clusterOf(code string) string {
	var idx []int
	switch t.Classify(code) {
	case SchemeStructured:
		idx = []int{t.byStructured[code]}
	case SchemeLegacyStructured:
		idx = t.byLegacyStructured[code]
	case SchemeLegacy:
		idx = t.byLegacy[code]
	case SchemeDatabase:
		return code
	default:
		if legacyRe.MatchString(code) {
			return code
		}
		return ""
	}

	for _, i := range idx {
		if t.entries[i].Chapeau && t.entries[i].DatabaseKey != "" {
			return t.entries[i].DatabaseKey
		}
	}
	for _, i := range idx {
		if t.entries[i].DatabaseKey != "" {
			return t.entries[i].DatabaseKey
		}
	}
	return ""
}

// designated picks the only row, or the chapeau row among several.
func (t *Table) designated(idx []int) (Entry, bool) {
	switch len(idx) {
	case 0:
		return Entry{}, false
	case 1:
		return t.entries[idx[0]], true
	}
	for _, i := range idx {
		if t.entries[i].Chapeau {
			return t.entries[i], true
		}
	}
	return Entry{}, false
}

func (t *Table) collect(idx []int) []Entry {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Entry, len(idx))
	for n, i := range idx {
		out[n] = t.entries[i]
	}
	return out
}
