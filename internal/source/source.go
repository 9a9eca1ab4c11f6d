// Package source holds the adapters that turn source payloads into draft
// records for the engine.
//
// Adapters only map fields. They may attach the structured, legacy and
// database codes the taxonomy table associates with a source's native hazard
// code, but never invent codes outside the table. When the table cannot
// resolve a native code unambiguously the native code is passed on alone and
// the engine decides what the record can become.
package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/disaster-correlation-etl/internal/domain"
	"github.com/couchcryptid/disaster-correlation-etl/internal/taxonomy"
)

var (
	// ErrUnknownSource is returned by Registry.Lookup for unregistered names.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidPayload marks a payload an adapter cannot decode at all.
	ErrInvalidPayload = errors.New("invalid source payload")
)

// Adapter produces role-tagged draft records from one source payload.
type Adapter interface {
	Name() string
	ProduceRecords(payload []byte) ([]domain.DraftRecord, error)
}

// Registry maps source names to adapters. It is built explicitly and never
// modified afterwards.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry registers the adapters under their names. Duplicate or empty
// names are rejected.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		name := a.Name()
		if name == "" {
			return nil, errors.New("source adapter with empty name")
		}
		if _, dup := r.adapters[name]; dup {
			return nil, fmt.Errorf("source adapter %q registered twice", name)
		}
		r.adapters[name] = a
	}
	return r, nil
}

// NewDefaultRegistry registers every adapter in this package.
func NewDefaultRegistry(table *taxonomy.Table) (*Registry, error) {
	return NewRegistry(NewGDACS(table), NewGLIDE(table), NewEMDAT(table), NewUSGS(table))
}

// Lookup returns the adapter for a source name.
func (r *Registry) Lookup(name string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return a, nil
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// crosswalk expands a native hazard code into the codes the table
// associates with it. Codes the table cannot resolve to a structured row are
// returned alone.
func crosswalk(table *taxonomy.Table, code string) []string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}

	var (
		entry taxonomy.Entry
		err   error
	)
	switch taxonomy.PatternOf(code) {
	case taxonomy.SchemeLegacy:
		entry, err = table.ResolveLegacy(code)
	case taxonomy.SchemeStructured:
		entry, err = table.Migrate(code)
	case taxonomy.SchemeDatabase:
		entry, err = table.ResolveDatabaseKey(code)
	default:
		err = taxonomy.ErrUnknownCode
	}
	if err != nil || entry.StructuredCode == "" {
		return []string{code}
	}

	codes := []string{code}
	for _, c := range []string{entry.StructuredCode, entry.LegacyCode, entry.DatabaseKey} {
		if c != "" && !slices.Contains(codes, c) {
			codes = append(codes, c)
		}
	}
	return codes
}

var sourceTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseSourceTime parses the timestamp layouts sources use. Times without a
// zone are UTC.
func parseSourceTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sourceTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

// pointGeometry renders a GeoJSON point, or nil when either coordinate is
// missing.
func pointGeometry(lat, lon *float64) json.RawMessage {
	if lat == nil || lon == nil {
		return nil
	}
	data, err := json.Marshal(map[string]any{
		"type":        "Point",
		"coordinates": []float64{*lon, *lat},
	})
	if err != nil {
		return nil
	}
	return data
}

var (
	eventRoles  = []string{string(domain.ProvenanceSource), string(domain.RoleEvent)}
	hazardRoles = []string{string(domain.ProvenanceSource), string(domain.RoleHazard)}
	impactRoles = []string{string(domain.ProvenanceSource), string(domain.RoleImpact)}
)
