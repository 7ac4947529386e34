// Package aligner adapts the output of the external graph-alignment oracle.
// The oracle runs out of process and drops one normalised result file per
// (target, candidate, mode) tuple; this adapter locates and decodes them.
package aligner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/xtalforge/ccmodel/internal/domain/alignment"
	domainchem "github.com/xtalforge/ccmodel/internal/domain/chem"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// FileAligner implements alignment.Aligner over a directory of precomputed
// result files laid out as <dir>/<mode>/<target>/<candidate>.json, where
// target ids have the variant separator made path-safe.
type FileAligner struct {
	dir string
}

// New constructs a FileAligner rooted at dir.
func New(dir string) (*FileAligner, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "alignment result directory unusable").WithDetail(dir)
	}
	if !info.IsDir() {
		return nil, apperrors.Newf(apperrors.CodePathUnusable, "alignment result path %s is not a directory", dir)
	}
	return &FileAligner{dir: dir}, nil
}

// ResultPath returns the expected result file location for one alignment.
func (a *FileAligner) ResultPath(targetID, candidatePath string, mode chem.AlignMode) string {
	candidate := strings.TrimSuffix(filepath.Base(candidatePath), filepath.Ext(candidatePath))
	return filepath.Join(a.dir, mode.String(), pathSafe(targetID), candidate+".json")
}

// Align loads the oracle's result for the given pair.  A missing result file
// means the oracle never produced one, which is indistinguishable from a
// failed alignment and is reported as such.
func (a *FileAligner) Align(ctx context.Context, ref *domainchem.ReferenceMolecule, candidatePath string, mode chem.AlignMode) (*alignment.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := a.ResultPath(ref.TargetID, candidatePath, mode)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.CodeAlignmentFailed,
				"no alignment result for target %s candidate %s", ref.TargetID, candidatePath)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeAlignmentFailed, "read alignment result").WithDetail(path)
	}

	res, err := alignment.Decode(data)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAlignmentFailed, "decode alignment result").WithDetail(path)
	}
	return res, nil
}

// pathSafe rewrites the variant separator so composite target ids nest as
// single path elements.
func pathSafe(targetID string) string {
	return strings.ReplaceAll(targetID, "|", "__")
}
