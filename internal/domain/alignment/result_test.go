package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

func descriptors(stereo string) chem.DescriptorSet {
	return chem.DescriptorSet{
		chem.DescriptorSMILES:       "CCO",
		chem.DescriptorSMILESStereo: stereo,
		chem.DescriptorInChI:        "InChI=1S/test",
		chem.DescriptorInChIKey:     "TESTKEY",
	}
}

func fullyMapped(n int) map[string]FitAtom {
	m := make(map[string]FitAtom, n)
	names := []string{"C1", "C2", "O1", "N1", "C3", "C4", "O2", "N2", "C5", "C6"}
	for i := 0; i < n; i++ {
		m[names[i]] = FitAtom{Index: i, AtomicNumber: 6, Name: names[i], Element: "C"}
	}
	return m
}

func TestResult_SmilesMatch(t *testing.T) {
	r := &Result{
		RefDescriptors: descriptors("C[C@H](N)O"),
		FitDescriptors: descriptors("C[C@H](N)O"),
	}
	assert.True(t, r.SmilesMatch())

	r.FitDescriptors = descriptors("C[C@@H](N)O")
	assert.False(t, r.SmilesMatch())

	// Two empty stereo descriptors are not evidence of a match.
	r.RefDescriptors = descriptors("")
	r.FitDescriptors = descriptors("")
	assert.False(t, r.SmilesMatch())
}

func TestResult_UnmappedAllHydrogen(t *testing.T) {
	r := &Result{}
	assert.True(t, r.UnmappedAllHydrogen(), "vacuous truth with no unmapped atoms")

	r.UnmappedFitAtoms = []UnmappedAtom{
		{Atom: FitAtom{Index: 10, AtomicNumber: 1, Name: "H10"}},
	}
	assert.True(t, r.UnmappedAllHydrogen())

	r.UnmappedFitAtoms = append(r.UnmappedFitAtoms, UnmappedAtom{
		Atom: FitAtom{Index: 11, AtomicNumber: 8, Name: "O9"},
	})
	assert.False(t, r.UnmappedAllHydrogen())
}

func TestResult_Validate(t *testing.T) {
	r := &Result{
		NAtomsRef: 3,
		NAtomsFit: 3,
		AtomMap:   fullyMapped(3),
	}
	assert.NoError(t, r.Validate())

	// Map larger than the reference.
	r = &Result{NAtomsRef: 2, NAtomsFit: 10, AtomMap: fullyMapped(3)}
	err := r.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeIncompleteAlignment))

	// Atom listed both mapped and unmapped.
	r = &Result{
		NAtomsRef: 3,
		NAtomsFit: 4,
		AtomMap:   fullyMapped(3),
		UnmappedFitAtoms: []UnmappedAtom{
			{Atom: FitAtom{Index: 0, AtomicNumber: 1, Name: "H0"}},
		},
	}
	assert.Error(t, r.Validate())
}

func TestResult_CheckUnmappedNeighbors(t *testing.T) {
	base := &Result{
		NAtomsRef: 2,
		NAtomsFit: 3,
		AtomMap: map[string]FitAtom{
			"N1": {Index: 0, AtomicNumber: 7, Name: "N1"},
			"C1": {Index: 1, AtomicNumber: 6, Name: "C1"},
		},
	}

	base.UnmappedFitAtoms = []UnmappedAtom{
		{Atom: FitAtom{Index: 2, AtomicNumber: 1, Name: "H2"}, Neighbors: []string{"N1"}},
	}
	assert.NoError(t, base.CheckUnmappedNeighbors())

	// Neighbor not present in the atom map.
	base.UnmappedFitAtoms[0].Neighbors = []string{"O9"}
	err := base.CheckUnmappedNeighbors()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnresolvedNeighbor))

	// No neighbors recorded at all.
	base.UnmappedFitAtoms[0].Neighbors = nil
	assert.Error(t, base.CheckUnmappedNeighbors())
}
