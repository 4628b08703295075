// ABOUTME: Temporal fact model for the Temporal Knowledge Graph (TKG)
// ABOUTME: Validity-bounded subject-predicate-object triples with confidence
package domain

import "time"

// Fact is a validity-bounded subject-predicate-object triple owned by a user.
type Fact struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Subject     string         `json:"subject"`
	Predicate   string         `json:"predicate"`
	Object      string         `json:"object"`
	ValidFrom   time.Time      `json:"valid_from"`
	ValidTo     *time.Time     `json:"valid_to,omitempty"`
	Confidence  float64        `json:"confidence"`
	LastUpdated time.Time      `json:"last_updated"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Open reports whether the fact has no valid_to set (still current).
func (f *Fact) Open() bool {
	return f.ValidTo == nil
}

// ActiveAt reports whether the fact's validity interval contains t:
// valid_from <= t < (valid_to or +inf).
func (f *Fact) ActiveAt(t time.Time) bool {
	if t.Before(f.ValidFrom) {
		return false
	}
	if f.ValidTo == nil {
		return true
	}
	return t.Before(*f.ValidTo)
}

// OverlapsRange reports whether f's interval overlaps [from, to], or whether
// f.ValidFrom itself falls inside [from, to] — the union the spec's range
// query is defined over.
func (f *Fact) OverlapsRange(from, to time.Time) bool {
	end := to
	factEnd := to.AddDate(1000, 0, 0) // sentinel "open" upper bound for comparison
	if f.ValidTo != nil {
		factEnd = *f.ValidTo
	}
	overlap := !f.ValidFrom.After(end) && factEnd.After(from)
	inRange := !f.ValidFrom.Before(from) && !f.ValidFrom.After(to)
	return overlap || inRange
}

// TemporalEdge relates two facts, itself validity-bounded and user-scoped.
type TemporalEdge struct {
	SourceID     string
	TargetID     string
	RelationType string
	Weight       float64
	ValidFrom    time.Time
	ValidTo      *time.Time
	UserID       string
}

// FactLink is an explicit, user-asserted typed relation between two memories,
// distinct from the automatic waypoint graph (see §SUPPLEMENTED FEATURES).
type FactLink struct {
	FromID   string    `json:"from_id"`
	ToID     string    `json:"to_id"`
	Relation string    `json:"relation"`
	UserID   string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkRelation enumerates the supported typed relations between memories.
type LinkRelation string

const (
	RelationRelatesTo  LinkRelation = "relates_to"
	RelationContradicts LinkRelation = "contradicts"
	RelationDependsOn  LinkRelation = "depends_on"
	RelationRefines    LinkRelation = "refines"
)
