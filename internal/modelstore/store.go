// Package modelstore persists the pipeline's artifacts on the local
// filesystem: one structured file per accepted model record, the per-run
// model index handed from build to assembly, and the concatenated assembled
// release file.
package modelstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xtalforge/ccmodel/internal/domain/model"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

const (
	indexFileName       = "model-index.json"
	assembledNamePrefix = "chem_comp_models"
	dirPerm             = 0o755
	filePerm            = 0o644
)

// Layout derives every artifact path from the configured cache directory and
// resource prefix.  Paths are deterministic so repeated runs overwrite their
// own artifacts.
type Layout struct {
	CacheDir string
	Prefix   string
}

// ModelFileDir returns the directory holding per-model files.
func (l Layout) ModelFileDir() string {
	return filepath.Join(l.CacheDir, fmt.Sprintf("cc-%s-model-files", l.Prefix))
}

// ModelPath returns the file path for one model record.
func (l Layout) ModelPath(parentID, modelID string) string {
	return filepath.Join(l.ModelFileDir(), parentID, modelID+".json")
}

// IndexPath returns the model index path.
func (l Layout) IndexPath() string {
	return filepath.Join(l.CacheDir, indexFileName)
}

// AssembledPath returns the path of the concatenated assembly output for the
// given release date.
func (l Layout) AssembledPath(date time.Time) string {
	return filepath.Join(l.CacheDir, fmt.Sprintf("%s-%s.json", assembledNamePrefix, date.Format("2006-01-02")))
}

// Store reads and writes pipeline artifacts.  All writes go through a
// temp-file rename so a crashed run never leaves a partial file that a later
// stage could mistake for a valid artifact.
type Store struct {
	layout Layout
}

// New constructs a Store and verifies the cache directory is usable, which
// is the one fatal precondition of every run.
func New(layout Layout) (*Store, error) {
	if layout.CacheDir == "" {
		return nil, apperrors.New(apperrors.CodePathUnusable, "cache directory not configured")
	}
	if err := os.MkdirAll(layout.ModelFileDir(), dirPerm); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "cannot create model file directory")
	}
	return &Store{layout: layout}, nil
}

// Layout exposes the store's path scheme.
func (s *Store) Layout() Layout { return s.layout }

// WriteModel persists one model record and returns its path.
func (s *Store) WriteModel(rec *model.ModelRecord) (string, error) {
	path := s.layout.ModelPath(rec.ParentID, rec.ModelID)
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeModelWriteFailed, "create parent directory").WithDetail(path)
	}
	if err := writeJSONAtomic(path, rec); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeModelWriteFailed, "persist model record").WithDetail(path)
	}
	return path, nil
}

// ReadModel loads one model record.
func (s *Store) ReadModel(parentID, modelID string) (*model.ModelRecord, error) {
	var rec model.ModelRecord
	if err := readJSON(s.layout.ModelPath(parentID, modelID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// WriteIndex persists the build's model index, the handoff artifact between
// build and assembly.
func (s *Store) WriteIndex(idx *model.Index) error {
	if err := writeJSONAtomic(s.layout.IndexPath(), idx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "persist model index")
	}
	return nil
}

// ReadIndex loads the model index written by a previous build pass.
func (s *Store) ReadIndex() (*model.Index, error) {
	idx := model.NewIndex()
	if err := readJSON(s.layout.IndexPath(), idx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "model index not found")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeIndexCorrupt, "model index unreadable")
	}
	return idx, nil
}

// WriteAssembled persists the concatenated assembled release and returns its
// path.
func (s *Store) WriteAssembled(records []*model.ModelRecord, date time.Time) (string, error) {
	path := s.layout.AssembledPath(date)
	if err := writeJSONAtomic(path, records); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "persist assembled release").WithDetail(path)
	}
	return path, nil
}

// writeJSONAtomic marshals v to a temp file in the target directory and
// renames it into place.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "read artifact").WithDetail(path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "decode artifact").WithDetail(path)
	}
	return nil
}
