package assemble

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/domain/assembly"
	"github.com/xtalforge/ccmodel/internal/domain/model"
	"github.com/xtalforge/ccmodel/internal/infrastructure/messaging/kafka"
	"github.com/xtalforge/ccmodel/internal/modelstore"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeAuditProvider struct {
	audit assembly.PriorAudit
	err   error
}

func (p *fakeAuditProvider) GetAuditDetails(context.Context) (assembly.PriorAudit, error) {
	return p.audit, p.err
}

type fakeRecorder struct {
	recorded []*model.ModelRecord
	err      error
}

func (r *fakeRecorder) RecordRelease(_ context.Context, records []*model.ModelRecord) error {
	r.recorded = records
	return r.err
}

type fakeArchiver struct {
	archived string
	err      error
}

func (a *fakeArchiver) ArchiveRelease(_ context.Context, localPath string) (string, error) {
	a.archived = localPath
	return "object", a.err
}

type fakePublisher struct {
	event *kafka.ReleaseEvent
	err   error
}

func (p *fakePublisher) PublishRelease(_ context.Context, event kafka.ReleaseEvent) error {
	p.event = &event
	return p.err
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func assemblyConfig() config.AssemblyConfig {
	return config.AssemblyConfig{
		MaxRFactor:         10.0,
		PublicPrefix:       "M",
		SuppressDuplicates: true,
		CanonicalSupremacy: false,
	}
}

func localRecord(localID, parent, matchID string, rFactor float64) *model.ModelRecord {
	return &model.ModelRecord{
		ModelID:  localID,
		ParentID: parent,
		MatchID:  matchID,
		SourceDB: chem.SourceCOD,
		Variant:  chem.VariantCanonical,
		RFactor:  rFactor,
		Audit: []model.AuditRow{{
			ModelID: localID,
			Action:  model.AuditActionInitialRelease,
			Date:    "2026-08-27",
		}},
	}
}

func storeWithIndex(t *testing.T, records ...*model.ModelRecord) *modelstore.Store {
	t.Helper()
	store, err := modelstore.New(modelstore.Layout{CacheDir: t.TempDir(), Prefix: "cod"})
	require.NoError(t, err)
	idx := model.NewIndex()
	for _, rec := range records {
		idx.Add(rec)
	}
	require.NoError(t, store.WriteIndex(idx))
	return store
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestRun_MintsIdentifiersAndWritesArtifact(t *testing.T) {
	store := storeWithIndex(t,
		localRecord("Q_ATP_00001", "ATP", "7000001", 3.5),
		localRecord("Q_ATP_00002", "ATP", "7000002", 5.0),
	)
	recorder := &fakeRecorder{}
	svc := NewService(assemblyConfig(), store, &fakeAuditProvider{}, recorder, nil, nil, nil, nil)

	outcome, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Report.Assembled)
	assert.Equal(t, 2, outcome.Report.Minted)
	assert.Zero(t, outcome.Report.Reused)

	require.Len(t, recorder.recorded, 2)
	assert.Equal(t, "M_ATP_00001", recorder.recorded[0].ModelID)
	assert.Equal(t, "M_ATP_00002", recorder.recorded[1].ModelID)

	data, err := os.ReadFile(outcome.ArtifactPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "M_ATP_00001")
}

func TestRun_PriorIdentityIsReusedWithItsDate(t *testing.T) {
	store := storeWithIndex(t, localRecord("Q_ATP_00001", "ATP", "7000001", 3.5))
	provider := &fakeAuditProvider{audit: assembly.PriorAudit{
		"ATP": {{ModelID: "M_ATP_00001", DBName: chem.SourceCOD, DBCode: "7000001", AuditDate: "2024-01-15"}},
	}}
	recorder := &fakeRecorder{}
	svc := NewService(assemblyConfig(), store, provider, recorder, nil, nil, nil, nil)

	outcome, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Report.Reused)
	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, "M_ATP_00001", recorder.recorded[0].ModelID)
	assert.Equal(t, "2024-01-15", recorder.recorded[0].AuditDate())
}

func TestRun_MissingIndexFails(t *testing.T) {
	store, err := modelstore.New(modelstore.Layout{CacheDir: t.TempDir(), Prefix: "cod"})
	require.NoError(t, err)
	svc := NewService(assemblyConfig(), store, &fakeAuditProvider{}, &fakeRecorder{}, nil, nil, nil, nil)

	_, err = svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestRun_AuditProviderFailureAbortsAssembly(t *testing.T) {
	store := storeWithIndex(t, localRecord("Q_ATP_00001", "ATP", "7000001", 3.5))
	provider := &fakeAuditProvider{err: apperrors.New(apperrors.CodeDBError, "connection refused")}
	svc := NewService(assemblyConfig(), store, provider, &fakeRecorder{}, nil, nil, nil, nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAuditUnavailable))
}

func TestRun_RecorderFailureIsAnError(t *testing.T) {
	store := storeWithIndex(t, localRecord("Q_ATP_00001", "ATP", "7000001", 3.5))
	recorder := &fakeRecorder{err: errors.New("disk full")}
	svc := NewService(assemblyConfig(), store, &fakeAuditProvider{}, recorder, nil, nil, nil, nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAuditUnavailable))
}

func TestRun_ArchiveAndPublishFailuresAreNonFatal(t *testing.T) {
	store := storeWithIndex(t, localRecord("Q_ATP_00001", "ATP", "7000001", 3.5))
	archiver := &fakeArchiver{err: errors.New("bucket gone")}
	publisher := &fakePublisher{err: errors.New("broker down")}
	svc := NewService(assemblyConfig(), store, &fakeAuditProvider{}, &fakeRecorder{}, archiver, publisher, nil, nil)

	outcome, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, outcome.ArtifactPath, archiver.archived)
	require.NotNil(t, publisher.event)
	assert.Equal(t, 1, publisher.event.ModelCount)
	assert.Equal(t, outcome.ReleaseDate, publisher.event.ReleaseDate)
}

func TestRun_FileAuditRoundTripGivesContinuityAcrossRuns(t *testing.T) {
	cacheDir := t.TempDir()
	layout := modelstore.Layout{CacheDir: cacheDir, Prefix: "cod"}
	store, err := modelstore.New(layout)
	require.NoError(t, err)

	writeIndex := func(recs ...*model.ModelRecord) {
		idx := model.NewIndex()
		for _, r := range recs {
			idx.Add(r)
		}
		require.NoError(t, store.WriteIndex(idx))
	}

	audit := modelstore.NewFileAuditProvider(layout)
	svc := NewService(assemblyConfig(), store, audit, audit, nil, nil, nil, nil)

	writeIndex(localRecord("Q_ATP_00001", "ATP", "7000001", 3.5))
	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Report.Minted)

	// A rebuilt index for the same match keeps the same public identifier.
	writeIndex(localRecord("Q_ATP_00001", "ATP", "7000001", 3.5))
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Report.Reused)
	assert.Zero(t, second.Report.Minted)
}
