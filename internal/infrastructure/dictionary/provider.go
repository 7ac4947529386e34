// Package dictionary resolves reference molecule definitions from a local
// snapshot of the component dictionary, exported upstream as a single JSON
// file.  The snapshot is immutable for the duration of a run.
package dictionary

import (
	"context"
	"encoding/json"
	"os"

	domainchem "github.com/xtalforge/ccmodel/internal/domain/chem"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// FileDictionary implements chem.MoleculeProvider over an in-memory map
// loaded once at startup.  Safe for concurrent reads.
type FileDictionary struct {
	molecules map[string]*domainchem.ReferenceMolecule
}

// Load reads a dictionary snapshot: a JSON array of reference molecules.
// Every molecule is validated on load so a malformed definition fails the run
// before any alignment work starts.
func Load(path string) (*FileDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "read dictionary snapshot").WithDetail(path)
	}

	var molecules []*domainchem.ReferenceMolecule
	if err := json.Unmarshal(data, &molecules); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "decode dictionary snapshot").WithDetail(path)
	}

	byID := make(map[string]*domainchem.ReferenceMolecule, len(molecules))
	for _, m := range molecules {
		if err := m.Validate(); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "invalid dictionary entry").WithDetail(m.TargetID)
		}
		if _, dup := byID[m.TargetID]; dup {
			return nil, apperrors.Newf(apperrors.CodePathUnusable, "duplicate dictionary entry %s", m.TargetID)
		}
		byID[m.TargetID] = m
	}
	return &FileDictionary{molecules: byID}, nil
}

// Len returns the number of loaded definitions.
func (d *FileDictionary) Len() int { return len(d.molecules) }

// GetMolecule resolves one target id.
func (d *FileDictionary) GetMolecule(_ context.Context, targetID string) (*domainchem.ReferenceMolecule, error) {
	m, ok := d.molecules[targetID]
	if !ok {
		return nil, apperrors.NotFound("no dictionary entry for target " + targetID)
	}
	return m, nil
}
