// Package assembly merges one build run's model index with the previously
// published model collection, preserving public identifiers for matches that
// persist across runs and minting new ones only for genuinely new matches.
package assembly

import (
	"context"

	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// PriorAuditRecord is one previously published model identity for a parent:
// the public identifier, the source-database coordinates it was built from,
// and its most recent audit date.
type PriorAuditRecord struct {
	ModelID   string        `json:"model_id"`
	DBName    chem.SourceDB `json:"db_name"`
	DBCode    string        `json:"db_code"`
	AuditDate string        `json:"audit_date"`
}

// PriorAudit maps parent identifiers to their published model identities.
type PriorAudit map[string][]PriorAuditRecord

// Lookup returns the first record for parentID matching the given source
// coordinates.  When two prior records claim the same match the first in
// list order wins deterministically; the reconciler reports the ambiguity as
// a warning.
func (p PriorAudit) Lookup(parentID string, db chem.SourceDB, matchID string) (PriorAuditRecord, bool) {
	for _, rec := range p[parentID] {
		if rec.DBName == db && rec.DBCode == matchID {
			return rec, true
		}
	}
	return PriorAuditRecord{}, false
}

// countClaims returns how many prior records for parentID claim the given
// source coordinates.
func (p PriorAudit) countClaims(parentID string, db chem.SourceDB, matchID string) int {
	n := 0
	for _, rec := range p[parentID] {
		if rec.DBName == db && rec.DBCode == matchID {
			n++
		}
	}
	return n
}

// PriorAuditProvider supplies the published-model audit index consulted for
// identity continuity.  Implementations wrap the audit database or the
// previous release's files.
type PriorAuditProvider interface {
	GetAuditDetails(ctx context.Context) (PriorAudit, error)
}
