package domain

import (
	"fmt"
	"strings"
)

// RoleKind is the structural role of a record.
type RoleKind string

const (
	RoleEvent  RoleKind = "event"
	RoleHazard RoleKind = "hazard"
	RoleImpact RoleKind = "impact"
)

// Provenance says whether a record was reported by a source or is the
// reference record of its correlation cluster.
type Provenance string

const (
	ProvenanceSource    Provenance = "source"
	ProvenanceReference Provenance = "reference"
)

// markerResponse is a recognised structural marker that this engine does
// not process.
const markerResponse = "response"

// Role is a validated role assignment. Build it with [Classify].
type Role struct {
	Kind       RoleKind
	Provenance Provenance
}

// IsEvent reports whether the role is an event role.
func (r Role) IsEvent() bool { return r.Kind == RoleEvent }

// IsHazard reports whether the role is a hazard role.
func (r Role) IsHazard() bool { return r.Kind == RoleHazard }

// IsImpact reports whether the role is an impact role.
func (r Role) IsImpact() bool { return r.Kind == RoleImpact }

// Markers returns the role markers written to a finished record: the
// structural role followed by the provenance.
func (r Role) Markers() []string {
	return []string{string(r.Kind), string(r.Provenance)}
}

func (r Role) String() string {
	return string(r.Kind) + "/" + string(r.Provenance)
}

// Classify resolves a declared marker set into a Role. Markers are matched
// case-insensitively and duplicates are ignored.
//
// Event records need the event marker and exactly one provenance marker.
// Hazard and impact records are always source-derived: the source marker is
// optional and the reference marker is rejected. A record may carry exactly
// one structural marker. Violations wrap [ErrInvalidRoleComposition].
func Classify(declared []string) (Role, error) {
	var (
		kinds       []RoleKind
		provenances []Provenance
	)
	seen := make(map[string]bool, len(declared))
	for _, raw := range declared {
		m := strings.ToLower(strings.TrimSpace(raw))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true

		switch m {
		case string(RoleEvent), string(RoleHazard), string(RoleImpact):
			kinds = append(kinds, RoleKind(m))
		case string(ProvenanceSource), string(ProvenanceReference):
			provenances = append(provenances, Provenance(m))
		case markerResponse:
			return Role{}, fmt.Errorf("%w: response records are not supported", ErrInvalidRoleComposition)
		default:
			return Role{}, fmt.Errorf("%w: unknown role marker %q", ErrInvalidRoleComposition, raw)
		}
	}

	switch len(kinds) {
	case 0:
		return Role{}, fmt.Errorf("%w: no structural role among %v", ErrInvalidRoleComposition, declared)
	case 1:
	default:
		return Role{}, fmt.Errorf("%w: conflicting structural roles %v", ErrInvalidRoleComposition, kinds)
	}

	kind := kinds[0]
	if kind == RoleEvent {
		if len(provenances) != 1 {
			return Role{}, fmt.Errorf("%w: event record needs exactly one of source/reference, got %v", ErrInvalidRoleComposition, provenances)
		}
		return Role{Kind: kind, Provenance: provenances[0]}, nil
	}

	for _, p := range provenances {
		if p == ProvenanceReference {
			return Role{}, fmt.Errorf("%w: %s record cannot be a reference", ErrInvalidRoleComposition, kind)
		}
	}
	return Role{Kind: kind, Provenance: ProvenanceSource}, nil
}
