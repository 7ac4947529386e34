// Package assemble runs the release-assembly pass: the model index produced
// by the build stage is merged against the prior-audit index, public
// identifiers are reconciled for continuity, and the surviving records are
// concatenated into the dated release artifact.
package assemble

import (
	"context"
	"time"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/domain/assembly"
	"github.com/xtalforge/ccmodel/internal/domain/model"
	"github.com/xtalforge/ccmodel/internal/infrastructure/messaging/kafka"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/metrics"
	"github.com/xtalforge/ccmodel/internal/modelstore"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// ReleaseRecorder persists the assembled identities so the next run's
// continuity lookup can find them.  Implemented by the audit database
// repository and the file-based fallback.
type ReleaseRecorder interface {
	RecordRelease(ctx context.Context, records []*model.ModelRecord) error
}

// Archiver uploads the assembled artifact to long-term storage.
type Archiver interface {
	ArchiveRelease(ctx context.Context, localPath string) (string, error)
}

// Publisher announces a completed release to downstream consumers.
type Publisher interface {
	PublishRelease(ctx context.Context, event kafka.ReleaseEvent) error
}

// Outcome summarises one assembly run.
type Outcome struct {
	ArtifactPath string           `json:"artifact_path"`
	ReleaseDate  string           `json:"release_date"`
	Report       *assembly.Report `json:"report"`
}

// Service orchestrates the assembly pass.  Archiving and publishing are best
// effort: the local artifact plus the recorded audit identities are the
// source of truth, so their failures degrade to warnings.  A failed audit
// recording is an error, because losing it would break the next run's
// identifier continuity.
type Service struct {
	reconciler *assembly.Reconciler
	store      *modelstore.Store
	provider   assembly.PriorAuditProvider
	recorder   ReleaseRecorder
	archiver   Archiver
	publisher  Publisher
	metrics    *metrics.Metrics
	logger     logging.Logger
	now        func() time.Time
}

// NewService constructs a Service.  archiver and publisher may be nil when
// the corresponding backends are disabled; m and logger may be nil.
func NewService(cfg config.AssemblyConfig, store *modelstore.Store, provider assembly.PriorAuditProvider, recorder ReleaseRecorder, archiver Archiver, publisher Publisher, m *metrics.Metrics, logger logging.Logger) *Service {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("assemble")
	return &Service{
		reconciler: assembly.NewReconciler(assembly.Options{
			MaxRFactor:         cfg.MaxRFactor,
			PublicPrefix:       cfg.PublicPrefix,
			SuppressDuplicates: cfg.SuppressDuplicates,
			CanonicalSupremacy: cfg.CanonicalSupremacy,
		}, logger),
		store:     store,
		provider:  provider,
		recorder:  recorder,
		archiver:  archiver,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// Run performs one assembly pass and returns its outcome.  The pass is
// idempotent over unchanged inputs: rerunning it reproduces the same public
// identifiers and audit dates.
func (s *Service) Run(ctx context.Context) (*Outcome, error) {
	timer := metrics.NewTimer(s.metrics.AssemblyDuration)
	defer timer.ObserveDuration()

	idx, err := s.store.ReadIndex()
	if err != nil {
		return nil, err
	}

	// Without the prior-audit index, identifier continuity cannot be
	// guaranteed; assembling anyway could mint colliding public identifiers.
	prior, err := s.provider.GetAuditDetails(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAuditUnavailable, "assembly requires the prior-audit index")
	}

	records, report := s.reconciler.Assemble(idx, prior)
	s.observe(records, report)

	releaseDate := s.now()
	path, err := s.store.WriteAssembled(records, releaseDate)
	if err != nil {
		return nil, err
	}

	if err := s.recorder.RecordRelease(ctx, records); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAuditUnavailable, "release identities not recorded")
	}

	if s.archiver != nil {
		if object, err := s.archiver.ArchiveRelease(ctx, path); err != nil {
			s.logger.Warn("release artifact not archived", logging.Err(err))
		} else {
			s.logger.Info("release artifact archived", logging.String("object", object))
		}
	}

	if s.publisher != nil {
		event := kafka.ReleaseEvent{
			ReleaseDate:  releaseDate.Format(model.AuditDateLayout),
			ArtifactPath: path,
			ModelCount:   report.Assembled,
			ReusedCount:  report.Reused,
			MintedCount:  report.Minted,
		}
		if err := s.publisher.PublishRelease(ctx, event); err != nil {
			s.logger.Warn("release event not published", logging.Err(err))
		}
	}

	s.logger.Info("assembly pass complete",
		logging.Int("assembled", report.Assembled),
		logging.Int("reused", report.Reused),
		logging.Int("minted", report.Minted),
		logging.Int("warnings", len(report.Warnings)),
		logging.String("artifact", path))

	return &Outcome{
		ArtifactPath: path,
		ReleaseDate:  releaseDate.Format(model.AuditDateLayout),
		Report:       report,
	}, nil
}

func (s *Service) observe(records []*model.ModelRecord, report *assembly.Report) {
	for _, rec := range records {
		s.metrics.ModelsAssembled.WithLabelValues(rec.SourceDB.String(), rec.Variant.String()).Inc()
	}
	s.metrics.ModelsReused.Add(float64(report.Reused))
	s.metrics.ModelsMinted.Add(float64(report.Minted))
	for reason, n := range report.Filtered {
		s.metrics.ModelsFiltered.WithLabelValues(reason).Add(float64(n))
	}
	s.metrics.ConsistencyAlerts.Add(float64(len(report.Warnings)))
}
