// Package alignment defines the canonical shape of an alignment outcome and
// the Aligner port through which the external graph-matching oracle is
// consumed.  Whatever the oracle returns is normalised into a Result before
// the acceptance policy ever sees it.
package alignment

import (
	"encoding/json"

	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// FitAtom is one atom of the candidate (fit) structure as reported by the
// aligner, carrying its experimental 3-D coordinates.
type FitAtom struct {
	Index        int     `json:"index"`
	AtomicNumber int     `json:"atomic_number"`
	Name         string  `json:"name"`
	Element      string  `json:"element"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	FormalCharge int     `json:"formal_charge"`
}

// IsHydrogen reports whether the fit atom is a proton.
func (a FitAtom) IsHydrogen() bool {
	return a.AtomicNumber == chem.AtomicNumberHydrogen
}

// UnmappedAtom is a fit atom the aligner could not pair with any reference
// atom, together with the names of its *mapped* reference-atom neighbours.
// The neighbour list is how an extra proton's attachment point is located
// when writing a protonation-variant model.
type UnmappedAtom struct {
	Atom      FitAtom  `json:"atom"`
	Neighbors []string `json:"neighbors"`
}

// Result is the normalised outcome of aligning one candidate structure
// against one reference molecule.  It is ephemeral: it lives only for the
// duration of acceptance evaluation of that single pair.
type Result struct {
	NAtomsRef int `json:"n_atoms_ref"`
	NAtomsFit int `json:"n_atoms_fit"`

	// Skipped is set by the aligner when it declined to attempt the match,
	// typically on a gross size mismatch in strict-size mode.
	Skipped bool `json:"skipped"`

	RefDescriptors chem.DescriptorSet `json:"ref_descriptors"`
	FitDescriptors chem.DescriptorSet `json:"fit_descriptors"`

	// AtomMap pairs reference atom names with the fit atom each one landed
	// on.  len(AtomMap) never exceeds NAtomsRef or NAtomsFit.
	AtomMap map[string]FitAtom `json:"atom_map"`

	// UnmappedFitAtoms lists fit atoms absent from AtomMap, in aligner
	// order.
	UnmappedFitAtoms []UnmappedAtom `json:"unmapped_fit_atoms"`
}

// SmilesMatch reports whether the stereo SMILES of the reference and fit
// molecules are identical.  Empty-vs-empty is deliberately not a match:
// plain string equality would let two missing descriptors pass as identical
// stereochemistry, so the non-empty requirement stays even though the
// writer's descriptor validation would catch it later.
func (r *Result) SmilesMatch() bool {
	ref := r.RefDescriptors[chem.DescriptorSMILESStereo]
	fit := r.FitDescriptors[chem.DescriptorSMILESStereo]
	return ref != "" && ref == fit
}

// UnmappedAllHydrogen reports whether every unmapped fit atom is a proton.
// A result with no unmapped atoms returns true vacuously.
func (r *Result) UnmappedAllHydrogen() bool {
	for _, u := range r.UnmappedFitAtoms {
		if !u.Atom.IsHydrogen() {
			return false
		}
	}
	return true
}

// Validate checks the structural invariants of the result: the atom map may
// not exceed either molecule's atom count, and no unmapped atom may also
// appear in the map.
func (r *Result) Validate() error {
	if len(r.AtomMap) > r.NAtomsRef {
		return apperrors.Newf(apperrors.CodeIncompleteAlignment,
			"atom map has %d entries but reference has %d atoms", len(r.AtomMap), r.NAtomsRef)
	}
	if len(r.AtomMap) > r.NAtomsFit {
		return apperrors.Newf(apperrors.CodeIncompleteAlignment,
			"atom map has %d entries but fit molecule has %d atoms", len(r.AtomMap), r.NAtomsFit)
	}
	mappedIdx := make(map[int]struct{}, len(r.AtomMap))
	for _, fa := range r.AtomMap {
		mappedIdx[fa.Index] = struct{}{}
	}
	for _, u := range r.UnmappedFitAtoms {
		if _, ok := mappedIdx[u.Atom.Index]; ok {
			return apperrors.Newf(apperrors.CodeIncompleteAlignment,
				"fit atom %s (index %d) listed both mapped and unmapped", u.Atom.Name, u.Atom.Index)
		}
	}
	return nil
}

// Decode normalises a serialised oracle result, rejecting structurally
// inconsistent payloads at the boundary.
func Decode(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeIncompleteAlignment, "malformed alignment result")
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return &res, nil
}

// CheckUnmappedNeighbors verifies that every unmapped atom's recorded
// neighbours are all mapped reference atom names.  An unmapped atom whose
// attachment point cannot be resolved poisons the whole candidate.
func (r *Result) CheckUnmappedNeighbors() error {
	for _, u := range r.UnmappedFitAtoms {
		if len(u.Neighbors) == 0 {
			return apperrors.Newf(apperrors.CodeUnresolvedNeighbor,
				"unmapped atom %s has no recorded neighbors", u.Atom.Name)
		}
		for _, n := range u.Neighbors {
			if _, ok := r.AtomMap[n]; !ok {
				return apperrors.Newf(apperrors.CodeUnresolvedNeighbor,
					"unmapped atom %s attaches to %s, which is not a mapped reference atom", u.Atom.Name, n)
			}
		}
	}
	return nil
}
