package model

import (
	"github.com/xtalforge/ccmodel/internal/domain/alignment"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// Decision is the outcome of evaluating one alignment result against the
// acceptance policy.
type Decision struct {
	Accepted bool
	Variant  chem.VariantType

	// Reason describes the decisive rule in human terms.
	Reason string

	// Code classifies rejections for aggregate reporting; CodeOK on accept.
	Code apperrors.ErrorCode
}

func accept(variant chem.VariantType, reason string) Decision {
	return Decision{Accepted: true, Variant: variant, Reason: reason, Code: apperrors.CodeOK}
}

func reject(code apperrors.ErrorCode, reason string) Decision {
	return Decision{Accepted: false, Reason: reason, Code: code}
}

// Policy decides whether one aligned candidate is an acceptable structural
// match and classifies the match variant.  Evaluation is a pure function of
// its inputs; telemetry is the caller's concern.
type Policy struct {
	// StrictSize enables the pre-alignment size guard: a fit molecule more
	// than SizeSlack atoms larger than the reference is skipped.
	StrictSize bool
	SizeSlack  int
}

// Evaluate applies the acceptance rules in order; the first decisive rule
// wins.  Three shapes of match are acceptable: atom-for-atom coverage with
// identical stereochemistry, heavy-atom-only coverage with identical
// stereochemistry, and full coverage plus extra protons whose attachment
// points are all resolvable (a protonation/tautomer variant).  Everything
// else is rejected.
func (p Policy) Evaluate(res *alignment.Result, _ *CandidateMatch) Decision {
	if res == nil || (res.NAtomsRef == 0 && res.NAtomsFit == 0) {
		return reject(apperrors.CodeAlignmentFailed, "alignment failed: aligner produced no result")
	}

	if res.Skipped || (p.StrictSize && res.NAtomsFit-res.NAtomsRef > p.SizeSlack) {
		return reject(apperrors.CodeAlignmentSkipped, "skipped: size mismatch")
	}

	smilesMatch := res.SmilesMatch()
	hasUnmapped := len(res.UnmappedFitAtoms) > 0
	unmappedOk := res.UnmappedAllHydrogen()
	mapped := len(res.AtomMap)

	if mapped < 2 {
		return reject(apperrors.CodeIncompleteAlignment, "alignment too sparse to be meaningful")
	}

	switch {
	case res.NAtomsRef == mapped && smilesMatch:
		return accept(chem.VariantCanonical, "full atom coverage, identical stereochemistry")

	case res.NAtomsRef > mapped && smilesMatch:
		return accept(chem.VariantCanonical, "heavy-atom coverage, identical stereochemistry")

	case res.NAtomsRef == mapped && hasUnmapped && unmappedOk:
		// The extra protons are only acceptable when each one attaches to a
		// mapped reference atom; an unresolved attachment point poisons the
		// whole candidate.
		if err := res.CheckUnmappedNeighbors(); err != nil {
			return reject(apperrors.GetCode(err), "extra proton with unresolved attachment point")
		}
		return accept(chem.VariantTautomerProtomer, "full coverage with extra protons")
	}

	if hasUnmapped && !unmappedOk {
		return reject(apperrors.CodeUnmappedHeavyAtom, "unmapped non-hydrogen atom")
	}
	return reject(apperrors.CodeMatchRejected, "no acceptance rule applies")
}
