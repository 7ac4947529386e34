package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalforge/ccmodel/internal/domain/alignment"
	domainchem "github.com/xtalforge/ccmodel/internal/domain/chem"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// pyridine-like test reference: 6 ring atoms, one hydrogen.
func testReference() *domainchem.ReferenceMolecule {
	return &domainchem.ReferenceMolecule{
		TargetID: "PYR",
		Atoms: []domainchem.Atom{
			{Name: "N1", Element: "N"},
			{Name: "C2", Element: "C"},
			{Name: "C3", Element: "C"},
			{Name: "C4", Element: "C"},
			{Name: "C5", Element: "C"},
			{Name: "C6", Element: "C"},
			{Name: "H2", Element: "H"},
		},
		Bonds: []domainchem.Bond{
			{Atom1: "N1", Atom2: "C2", Order: chem.BondAromatic},
			{Atom1: "C2", Atom2: "C3", Order: chem.BondAromatic},
			{Atom1: "C3", Atom2: "C4", Order: chem.BondAromatic},
			{Atom1: "C4", Atom2: "C5", Order: chem.BondAromatic},
			{Atom1: "C5", Atom2: "C6", Order: chem.BondAromatic},
			{Atom1: "C6", Atom2: "N1", Order: chem.BondAromatic},
			{Atom1: "C2", Atom2: "H2", Order: chem.BondSingle},
		},
	}
}

func fullDescriptors(stereo string) chem.DescriptorSet {
	return chem.DescriptorSet{
		chem.DescriptorFormula:      "C5 H5 N",
		chem.DescriptorSMILES:      "c1ccncc1",
		chem.DescriptorSMILESStereo: stereo,
		chem.DescriptorInChI:        "InChI=1S/C5H5N/c1-2-4-6-5-3-1/h1-5H",
		chem.DescriptorInChIKey:     "JUJWROOIHBZHMG-UHFFFAOYSA-N",
	}
}

// fullAlignment maps every reference atom.
func fullAlignment() *alignment.Result {
	names := []string{"N1", "C2", "C3", "C4", "C5", "C6", "H2"}
	m := make(map[string]alignment.FitAtom, len(names))
	for i, n := range names {
		z := 6
		if n == "N1" {
			z = 7
		}
		if n == "H2" {
			z = 1
		}
		m[n] = alignment.FitAtom{Index: i, AtomicNumber: z, Name: n, X: float64(i), Y: 0.5, Z: -1}
	}
	return &alignment.Result{
		NAtomsRef:      7,
		NAtomsFit:      7,
		AtomMap:        m,
		RefDescriptors: fullDescriptors("c1ccncc1"),
		FitDescriptors: fullDescriptors("c1ccncc1"),
	}
}

func fixedClockWriter() *Writer {
	w := NewWriter(nil)
	w.now = func() time.Time { return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC) }
	return w
}

func TestWrite_FullCoverage(t *testing.T) {
	w := fixedClockWriter()
	cand := &CandidateMatch{
		MatchID: "7203323", SourceDB: chem.SourceCOD, RFactor: 3.21,
		Temperature: "293 K", DOI: "10.1000/demo", DBVersion: "v2026.1",
	}

	rec, err := w.Write(testReference(), fullAlignment(), cand, Decision{Accepted: true, Variant: chem.VariantCanonical}, "Q_PYR_00001")
	require.NoError(t, err)

	assert.Equal(t, "Q_PYR_00001", rec.ModelID)
	assert.Equal(t, "PYR", rec.ParentID)
	assert.Len(t, rec.Atoms, 7)
	assert.Len(t, rec.Bonds, 7)

	// Atom rows preserve reference declaration order and carry fit coordinates.
	assert.Equal(t, "N1", rec.Atoms[0].Name)
	assert.Equal(t, 0.5, rec.Atoms[0].Y)

	// Full coverage sets the all-sites flag, not heavy-atoms-only.
	v, ok := rec.FeatureValue(chem.FeatureAllAtomSites)
	require.True(t, ok)
	assert.Equal(t, "Y", v)
	assert.False(t, rec.HasFeature(chem.FeatureHeavyAtomsOnly))

	// R-factor is recorded to three decimals; temperature in Kelvin.
	v, _ = rec.FeatureValue(chem.FeatureRFactor)
	assert.Equal(t, "3.210", v)
	v, _ = rec.FeatureValue(chem.FeatureExperimentTemp)
	assert.Equal(t, "293.00", v)

	require.Len(t, rec.Audit, 1)
	assert.Equal(t, AuditActionInitialRelease, rec.Audit[0].Action)
	assert.Equal(t, "2026-08-27", rec.Audit[0].Date)

	require.Len(t, rec.References, 1)
	assert.Equal(t, "7203323", rec.References[0].MatchID)
}

func TestWrite_HeavyAtomsOnly(t *testing.T) {
	res := fullAlignment()
	delete(res.AtomMap, "H2") // the hydrogen has no experimental site
	res.NAtomsFit = 6

	rec, err := fixedClockWriter().Write(testReference(), res, &CandidateMatch{MatchID: "m", SourceDB: chem.SourceCSD}, Decision{Variant: chem.VariantCanonical}, "Q_PYR_00002")
	require.NoError(t, err)

	assert.Len(t, rec.Atoms, 6)
	// The C2–H2 bond loses an endpoint and is dropped.
	assert.Len(t, rec.Bonds, 6)
	assert.True(t, rec.HasFeature(chem.FeatureHeavyAtomsOnly))
	assert.False(t, rec.HasFeature(chem.FeatureAllAtomSites))
}

func TestWrite_ExtraProtonSyntheticAtomAndBond(t *testing.T) {
	res := fullAlignment()
	res.NAtomsFit = 8
	res.UnmappedFitAtoms = []alignment.UnmappedAtom{
		{
			Atom:      alignment.FitAtom{Index: 7, AtomicNumber: 1, Name: "H99", Element: "H", X: 9, Y: 9, Z: 9},
			Neighbors: []string{"N1"},
		},
	}

	rec, err := fixedClockWriter().Write(testReference(), res, &CandidateMatch{MatchID: "m", SourceDB: chem.SourceCOD}, Decision{Variant: chem.VariantTautomerProtomer}, "Q_PYR_00003")
	require.NoError(t, err)

	// 7 mapped + 1 synthetic.
	require.Len(t, rec.Atoms, 8)
	last := rec.Atoms[7]
	assert.Equal(t, "HEX0", last.Name)
	assert.Equal(t, "H", last.Element)
	assert.Equal(t, 9.0, last.X)

	// 7 reference bonds + 1 synthetic single bond to the mapped neighbour.
	require.Len(t, rec.Bonds, 8)
	synth := rec.Bonds[7]
	assert.Equal(t, "N1", synth.Atom1)
	assert.Equal(t, "HEX0", synth.Atom2)
	assert.Equal(t, chem.BondSingle, synth.Order)
}

func TestWrite_VariantReferenceSeedsVariantType(t *testing.T) {
	ref := testReference()
	ref.TargetID = "PYR|2"

	// A full-coverage, stereo-identical match classifies as canonical, but a
	// model built against a variant reference form must still be labeled
	// tautomer_protomer so assembly never ranks it above the parent's
	// genuine canonical models.
	rec, err := fixedClockWriter().Write(ref, fullAlignment(), &CandidateMatch{MatchID: "m", SourceDB: chem.SourceCOD}, Decision{Accepted: true, Variant: chem.VariantCanonical}, "Q_PYR_00007")
	require.NoError(t, err)

	assert.Equal(t, chem.VariantTautomerProtomer, rec.Variant)
	assert.Equal(t, "PYR", rec.ParentID)
	assert.Equal(t, "PYR|2", rec.SourceTargetID)
}

func TestWrite_MissingDescriptorFails(t *testing.T) {
	res := fullAlignment()
	delete(res.FitDescriptors, chem.DescriptorInChIKey)

	_, err := fixedClockWriter().Write(testReference(), res, &CandidateMatch{MatchID: "m"}, Decision{}, "Q_PYR_00004")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeIncompleteAlignment))
}

func TestWrite_UnresolvedNeighborFails(t *testing.T) {
	res := fullAlignment()
	res.UnmappedFitAtoms = []alignment.UnmappedAtom{
		{Atom: alignment.FitAtom{Index: 7, AtomicNumber: 1, Name: "H99"}, Neighbors: []string{"ZZ9"}},
	}

	_, err := fixedClockWriter().Write(testReference(), res, &CandidateMatch{MatchID: "m"}, Decision{}, "Q_PYR_00005")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnresolvedNeighbor))
}

func TestWrite_BadTemperatureIsNotFatal(t *testing.T) {
	cand := &CandidateMatch{MatchID: "m", SourceDB: chem.SourceCOD, Temperature: "room temp"}
	rec, err := fixedClockWriter().Write(testReference(), fullAlignment(), cand, Decision{Variant: chem.VariantCanonical}, "Q_PYR_00006")
	require.NoError(t, err)
	assert.False(t, rec.HasFeature(chem.FeatureExperimentTemp))
}
