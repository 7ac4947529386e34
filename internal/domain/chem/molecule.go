// Package chem defines the reference-molecule domain entities: the atom and
// bond graph of a chemical component definition that candidate crystal
// structures are aligned against.
package chem

import (
	"context"
	"strings"

	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// targetIDSeparator splits a composite target identifier into its parent
// component id and variant discriminator ("ATP|2" → parent "ATP", variant "2").
const targetIDSeparator = "|"

// Atom is one reference atom: a name unique within the molecule, an element
// symbol, and the nominal formal charge from the component definition.
type Atom struct {
	Name         string `json:"name"`
	Element      string `json:"element"`
	FormalCharge int    `json:"formal_charge"`
}

// IsHydrogen reports whether the atom is a hydrogen or deuterium.
func (a Atom) IsHydrogen() bool {
	return a.Element == "H" || a.Element == "D"
}

// Bond is one reference bond between two named atoms.
type Bond struct {
	Atom1 string         `json:"atom_1"`
	Atom2 string         `json:"atom_2"`
	Order chem.BondOrder `json:"order"`
}

// ReferenceMolecule is the target chemical entity definition for one build
// pass: an ordered atom list and bond list sourced from the component
// dictionary.  The TargetID may be a composite "parent|variant" key when the
// definition is itself a tautomer or protomer variant of the parent entity.
type ReferenceMolecule struct {
	TargetID string `json:"target_id"`
	Atoms    []Atom `json:"atoms"`
	Bonds    []Bond `json:"bonds"`
}

// ParentID returns the parent component identifier encoded in TargetID.
func (m *ReferenceMolecule) ParentID() string {
	parent, _ := SplitTargetID(m.TargetID)
	return parent
}

// IsVariant reports whether the molecule is a tautomer/protomer variant
// definition rather than the parent definition itself.
func (m *ReferenceMolecule) IsVariant() bool {
	_, variant := SplitTargetID(m.TargetID)
	return variant != ""
}

// AtomByName returns the named atom and whether it exists.
func (m *ReferenceMolecule) AtomByName(name string) (Atom, bool) {
	for _, a := range m.Atoms {
		if a.Name == name {
			return a, true
		}
	}
	return Atom{}, false
}

// HeavyAtomCount returns the number of non-hydrogen atoms.
func (m *ReferenceMolecule) HeavyAtomCount() int {
	n := 0
	for _, a := range m.Atoms {
		if !a.IsHydrogen() {
			n++
		}
	}
	return n
}

// Validate checks the structural integrity of the molecule: a non-empty
// identifier, unique atom names, and bonds whose endpoints exist.
func (m *ReferenceMolecule) Validate() error {
	if m.TargetID == "" {
		return apperrors.Invalid("reference molecule has no target id")
	}
	if len(m.Atoms) == 0 {
		return apperrors.Newf(apperrors.CodeInvalid, "reference molecule %s has no atoms", m.TargetID)
	}
	seen := make(map[string]struct{}, len(m.Atoms))
	for _, a := range m.Atoms {
		if a.Name == "" {
			return apperrors.Newf(apperrors.CodeInvalid, "reference molecule %s has an unnamed atom", m.TargetID)
		}
		if _, dup := seen[a.Name]; dup {
			return apperrors.Newf(apperrors.CodeInvalid, "reference molecule %s has duplicate atom name %s", m.TargetID, a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	for _, b := range m.Bonds {
		if _, ok := seen[b.Atom1]; !ok {
			return apperrors.Newf(apperrors.CodeInvalid, "reference molecule %s bond references unknown atom %s", m.TargetID, b.Atom1)
		}
		if _, ok := seen[b.Atom2]; !ok {
			return apperrors.Newf(apperrors.CodeInvalid, "reference molecule %s bond references unknown atom %s", m.TargetID, b.Atom2)
		}
	}
	return nil
}

// SplitTargetID decomposes a possibly-composite target identifier into the
// parent id and the variant discriminator.  A plain identifier returns an
// empty variant.
func SplitTargetID(targetID string) (parent, variant string) {
	if i := strings.Index(targetID, targetIDSeparator); i >= 0 {
		return targetID[:i], targetID[i+len(targetIDSeparator):]
	}
	return targetID, ""
}

// MoleculeProvider resolves reference molecule definitions by target id.
// Implementations wrap the component dictionary backend.
type MoleculeProvider interface {
	GetMolecule(ctx context.Context, targetID string) (*ReferenceMolecule, error)
}
