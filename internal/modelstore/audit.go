package modelstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/xtalforge/ccmodel/internal/domain/assembly"
	"github.com/xtalforge/ccmodel/internal/domain/model"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

const auditFileName = "prior-audit.json"

// AuditPath returns the file-based prior-audit index path.
func (l Layout) AuditPath() string {
	return filepath.Join(l.CacheDir, auditFileName)
}

// FileAuditProvider implements assembly.PriorAuditProvider on a JSON file in
// the cache directory.  It is the fallback when the audit database is
// disabled; a missing file means a first release with no prior identities.
type FileAuditProvider struct {
	layout Layout
}

// NewFileAuditProvider constructs a FileAuditProvider.
func NewFileAuditProvider(layout Layout) *FileAuditProvider {
	return &FileAuditProvider{layout: layout}
}

// GetAuditDetails loads the prior-audit index, returning an empty index when
// none has been written yet.
func (p *FileAuditProvider) GetAuditDetails(_ context.Context) (assembly.PriorAudit, error) {
	audit := make(assembly.PriorAudit)
	if err := readJSON(p.layout.AuditPath(), &audit); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return audit, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeAuditUnavailable, "prior audit index unreadable")
	}
	return audit, nil
}

// RecordRelease merges one assembled release into the index.  Existing
// identities keep their original audit date.
func (p *FileAuditProvider) RecordRelease(ctx context.Context, records []*model.ModelRecord) error {
	audit, err := p.GetAuditDetails(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if _, exists := audit.Lookup(rec.ParentID, rec.SourceDB, rec.MatchID); exists {
			continue
		}
		audit[rec.ParentID] = append(audit[rec.ParentID], assembly.PriorAuditRecord{
			ModelID:   rec.ModelID,
			DBName:    rec.SourceDB,
			DBCode:    rec.MatchID,
			AuditDate: rec.AuditDate(),
		})
	}

	if err := writeJSONAtomic(p.layout.AuditPath(), audit); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "persist prior audit index")
	}
	return nil
}
