package postgres

import (
	"context"

	"github.com/xtalforge/ccmodel/internal/domain/assembly"
	"github.com/xtalforge/ccmodel/internal/domain/model"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// AuditRepository implements assembly.PriorAuditProvider against the
// model_audit table.
type AuditRepository struct {
	conn   *Connection
	logger logging.Logger
}

// NewAuditRepository constructs an AuditRepository.  logger may be nil.
func NewAuditRepository(conn *Connection, logger logging.Logger) *AuditRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AuditRepository{conn: conn, logger: logger}
}

// GetAuditDetails loads the full published-model identity index, keyed by
// parent.  Rows are ordered so the oldest claim for a source entry comes
// first, matching the reconciler's first-wins ambiguity rule.
func (r *AuditRepository) GetAuditDetails(ctx context.Context) (assembly.PriorAudit, error) {
	const q = `
		SELECT parent_id, model_id, db_name, db_code, to_char(audit_date, 'YYYY-MM-DD')
		FROM model_audit
		ORDER BY parent_id, audit_date, model_id`

	rows, err := r.conn.Pool().Query(ctx, q)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAuditUnavailable, "query prior audit records")
	}
	defer rows.Close()

	audit := make(assembly.PriorAudit)
	n := 0
	for rows.Next() {
		var parentID, modelID, dbName, dbCode, date string
		if err := rows.Scan(&parentID, &modelID, &dbName, &dbCode, &date); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeAuditUnavailable, "scan prior audit record")
		}
		audit[parentID] = append(audit[parentID], assembly.PriorAuditRecord{
			ModelID:   modelID,
			DBName:    chem.SourceDB(dbName),
			DBCode:    dbCode,
			AuditDate: date,
		})
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAuditUnavailable, "iterate prior audit records")
	}

	r.logger.Info("prior audit index loaded",
		logging.Int("parents", len(audit)),
		logging.Int("records", n))
	return audit, nil
}

// RecordRelease upserts the published identities of one assembled release so
// the next run's continuity lookup sees them.  The audit date of an existing
// identity is never advanced.
func (r *AuditRepository) RecordRelease(ctx context.Context, records []*model.ModelRecord) error {
	const q = `
		INSERT INTO model_audit (parent_id, model_id, db_name, db_code, audit_date)
		VALUES ($1, $2, $3, $4, $5::date)
		ON CONFLICT (parent_id, db_name, db_code) DO NOTHING`

	tx, err := r.conn.Pool().Begin(ctx)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDBError, "begin release audit transaction")
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		if _, err := tx.Exec(ctx, q,
			rec.ParentID, rec.ModelID, rec.SourceDB.String(), rec.MatchID, rec.AuditDate()); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDBError, "record released model").WithDetail(rec.ModelID)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDBError, "commit release audit transaction")
	}

	r.logger.Info("release recorded in audit store", logging.Int("models", len(records)))
	return nil
}
