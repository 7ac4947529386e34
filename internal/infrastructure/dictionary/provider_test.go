package dictionary

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainchem "github.com/xtalforge/ccmodel/internal/domain/chem"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

func writeSnapshot(t *testing.T, molecules []*domainchem.ReferenceMolecule) string {
	t.Helper()
	data, err := json.Marshal(molecules)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "dictionary.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleMolecule(targetID string) *domainchem.ReferenceMolecule {
	return &domainchem.ReferenceMolecule{
		TargetID: targetID,
		Atoms: []domainchem.Atom{
			{Name: "C1", Element: "C"},
			{Name: "O1", Element: "O"},
		},
		Bonds: []domainchem.Bond{{Atom1: "C1", Atom2: "O1", Order: chem.BondDouble}},
	}
}

func TestLoad_ResolvesByTargetID(t *testing.T) {
	path := writeSnapshot(t, []*domainchem.ReferenceMolecule{
		sampleMolecule("ATP"),
		sampleMolecule("ATP|tauto"),
	})

	dict, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, dict.Len())

	m, err := dict.GetMolecule(context.Background(), "ATP|tauto")
	require.NoError(t, err)
	assert.Equal(t, "ATP|tauto", m.TargetID)

	_, err = dict.GetMolecule(context.Background(), "XYZ")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestLoad_RejectsInvalidEntry(t *testing.T) {
	broken := sampleMolecule("BAD")
	broken.Bonds = append(broken.Bonds, domainchem.Bond{Atom1: "C1", Atom2: "N9", Order: chem.BondSingle})
	path := writeSnapshot(t, []*domainchem.ReferenceMolecule{broken})

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePathUnusable))
}

func TestLoad_RejectsDuplicateEntry(t *testing.T) {
	path := writeSnapshot(t, []*domainchem.ReferenceMolecule{
		sampleMolecule("ATP"),
		sampleMolecule("ATP"),
	})

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePathUnusable))
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePathUnusable))
}
