package model

import (
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// AuditActionInitialRelease is the action recorded when a model is first
// written.  Assembly overwrites the date, never the action, when identity
// continuity applies.
const AuditActionInitialRelease = "Initial release"

// AuditDateLayout is the ISO date format used on audit rows.
const AuditDateLayout = "2006-01-02"

// Every table row carries the owning model identifier, mirroring the
// table-oriented structure of the persisted chemical-record format.  When a
// model is relabeled during assembly, every row's identifier is rewritten as
// a set.

// AtomRow is one retained atom with its experimental coordinates.
type AtomRow struct {
	ModelID      string  `json:"model_id"`
	Name         string  `json:"name"`
	Element      string  `json:"element"`
	FormalCharge int     `json:"formal_charge"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
}

// BondRow is one retained bond.
type BondRow struct {
	ModelID string         `json:"model_id"`
	Atom1   string         `json:"atom_1"`
	Atom2   string         `json:"atom_2"`
	Order   chem.BondOrder `json:"order"`
}

// DescriptorRow is one chemical descriptor of the fit molecule.
type DescriptorRow struct {
	ModelID string              `json:"model_id"`
	Type    chem.DescriptorType `json:"type"`
	Value   string              `json:"value"`
}

// FeatureRow is one provenance or quality feature.
type FeatureRow struct {
	ModelID string `json:"model_id"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

// AuditRow is one audit-trail entry.
type AuditRow struct {
	ModelID string `json:"model_id"`
	Action  string `json:"action"`
	Date    string `json:"date"`
}

// ReferenceRow ties the model back to its source-database entry.
type ReferenceRow struct {
	ModelID  string        `json:"model_id"`
	SourceDB chem.SourceDB `json:"source_db"`
	MatchID  string        `json:"match_id"`
	DOI      string        `json:"doi,omitempty"`
}

// ModelRecord is the accepted, persisted output of the model writer: the
// candidate's coordinates projected onto the reference atom-naming scheme,
// plus descriptors, features, provenance, and audit trail.  Immutable after
// writing except for identifier relabeling during assembly.
type ModelRecord struct {
	ModelID        string           `json:"model_id"`
	ParentID       string           `json:"parent_id"`
	SourceTargetID string           `json:"source_target_id"`
	MatchID        string           `json:"match_id"`
	SourceDB       chem.SourceDB    `json:"source_db"`
	Variant        chem.VariantType `json:"variant_type"`
	RFactor        float64          `json:"r_factor"`

	Atoms       []AtomRow       `json:"atoms"`
	Bonds       []BondRow       `json:"bonds"`
	Descriptors []DescriptorRow `json:"descriptors"`
	Features    []FeatureRow    `json:"features"`
	Audit       []AuditRow      `json:"audit"`
	References  []ReferenceRow  `json:"references"`
}

// Relabel rewrites the model identifier and every table row's back-reference
// to it.  The rewrite is total: a record never leaves this method with mixed
// identifiers.
func (r *ModelRecord) Relabel(newID string) {
	r.ModelID = newID
	for i := range r.Atoms {
		r.Atoms[i].ModelID = newID
	}
	for i := range r.Bonds {
		r.Bonds[i].ModelID = newID
	}
	for i := range r.Descriptors {
		r.Descriptors[i].ModelID = newID
	}
	for i := range r.Features {
		r.Features[i].ModelID = newID
	}
	for i := range r.Audit {
		r.Audit[i].ModelID = newID
	}
	for i := range r.References {
		r.References[i].ModelID = newID
	}
}

// SetAuditDate overwrites the date on every audit row.  Assembly uses this
// to restore a prior run's release date when a public identifier is reused.
func (r *ModelRecord) SetAuditDate(date string) {
	for i := range r.Audit {
		r.Audit[i].Date = date
	}
}

// AuditDate returns the date of the first audit row, or empty.
func (r *ModelRecord) AuditDate() string {
	if len(r.Audit) == 0 {
		return ""
	}
	return r.Audit[0].Date
}

// HasFeature reports whether the named feature is present.
func (r *ModelRecord) HasFeature(name string) bool {
	for _, f := range r.Features {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FeatureValue returns the named feature's value and whether it exists.
func (r *ModelRecord) FeatureValue(name string) (string, bool) {
	for _, f := range r.Features {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// RowCounts summarises per-table row counts for the advisory consistency
// check run after assembly.
type RowCounts struct {
	Atoms       int
	Bonds       int
	Descriptors int
	Features    int
	Audit       int
}

// Counts returns the record's per-table row counts.
func (r *ModelRecord) Counts() RowCounts {
	return RowCounts{
		Atoms:       len(r.Atoms),
		Bonds:       len(r.Bonds),
		Descriptors: len(r.Descriptors),
		Features:    len(r.Features),
		Audit:       len(r.Audit),
	}
}
