// Package build runs the model-building pass: every candidate match of every
// target molecule is aligned, judged by the acceptance policy, and, when
// accepted, projected into a model record under a build-local identifier.
// The output is a model index handed to the assembly stage.
package build

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/xtalforge/ccmodel/internal/config"
	"github.com/xtalforge/ccmodel/internal/domain/alignment"
	domainchem "github.com/xtalforge/ccmodel/internal/domain/chem"
	"github.com/xtalforge/ccmodel/internal/domain/model"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/metrics"
	"github.com/xtalforge/ccmodel/internal/modelstore"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// Target pairs one reference molecule identifier with the candidate matches
// retrieved for it from the experimental databases.
type Target struct {
	TargetID   string                  `json:"target_id"`
	Candidates []*model.CandidateMatch `json:"candidates"`
}

// Report aggregates the outcome counts of one build pass.  Per-candidate
// failures are absorbed into these counts; only configuration-level errors
// abort a run.
type Report struct {
	RunID        string         `json:"run_id"`
	Parents      int            `json:"parents"`
	Evaluated    int            `json:"evaluated"`
	Accepted     int            `json:"accepted"`
	Written      int            `json:"written"`
	Rejected     map[string]int `json:"rejected"`
	Failures     int            `json:"failures"`
	StoppedEarly bool           `json:"stopped_early"`
}

func newReport() *Report {
	return &Report{Rejected: make(map[string]int)}
}

func (r *Report) merge(other *Report) {
	r.Parents += other.Parents
	r.Evaluated += other.Evaluated
	r.Accepted += other.Accepted
	r.Written += other.Written
	r.Failures += other.Failures
	r.StoppedEarly = r.StoppedEarly || other.StoppedEarly
	for code, n := range other.Rejected {
		r.Rejected[code] += n
	}
}

// Service orchestrates the build pass.
type Service struct {
	cfg       config.BuildConfig
	molecules domainchem.MoleculeProvider
	aligner   alignment.Aligner
	policy    model.Policy
	writer    *model.Writer
	store     *modelstore.Store
	metrics   *metrics.Metrics
	logger    logging.Logger
}

// NewService constructs a Service.  The aligner is bounded by the configured
// per-candidate timeout here, so no caller can accidentally run unbounded
// alignments; wrap it with caching before passing it in if a cache is
// available.  m and logger may be nil.
func NewService(cfg config.BuildConfig, molecules domainchem.MoleculeProvider, aligner alignment.Aligner, store *modelstore.Store, m *metrics.Metrics, logger logging.Logger) *Service {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:       cfg,
		molecules: molecules,
		aligner:   alignment.WithTimeout(aligner, cfg.AlignTimeout),
		policy:    model.Policy{StrictSize: cfg.StrictSize, SizeSlack: cfg.SizeSlack},
		writer:    model.NewWriter(logger),
		store:     store,
		metrics:   m,
		logger:    logger.Named("build"),
	}
}

// Run processes all targets and persists the resulting model index.  Targets
// are grouped by parent entity and one worker owns each parent's batch end to
// end, so per-parent sequence allocation never needs locking.  The stop
// sentinel and context cancellation are honoured between parents, never
// mid-parent.
func (s *Service) Run(ctx context.Context, targets []Target) (*model.Index, *Report, error) {
	runID := uuid.NewString()
	byParent := groupByParent(targets)
	parents := make([]string, 0, len(byParent))
	for p := range byParent {
		parents = append(parents, p)
	}
	sort.Strings(parents)

	var sentinel *Sentinel
	if s.cfg.StopSentinel != "" {
		var err error
		sentinel, err = NewSentinel(s.cfg.StopSentinel, s.logger)
		if err != nil {
			return nil, nil, err
		}
		defer sentinel.Close()
	}

	workers := s.cfg.Workers
	if workers > len(parents) {
		workers = len(parents)
	}
	if workers < 1 {
		workers = 1
	}

	parentCh := make(chan string)
	type workerOut struct {
		index  *model.Index
		report *Report
		err    error
	}
	outCh := make(chan workerOut, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.metrics.ActiveWorkers.Inc()
			defer s.metrics.ActiveWorkers.Dec()

			idx := model.NewIndex()
			report := newReport()
			var workerErr error
			// The channel is always drained, even after a fatal error, so
			// the feeding goroutine can never block on a dead worker.
			for parent := range parentCh {
				if workerErr != nil {
					continue
				}
				if ctx.Err() != nil || (sentinel != nil && sentinel.ShouldStop()) {
					report.StoppedEarly = true
					continue
				}
				if err := s.processParent(ctx, parent, byParent[parent], idx, report); err != nil {
					workerErr = err
					continue
				}
				report.Parents++
			}
			outCh <- workerOut{idx, report, workerErr}
		}()
	}

	for _, p := range parents {
		parentCh <- p
	}
	close(parentCh)
	wg.Wait()
	close(outCh)

	merged := model.NewIndex()
	report := newReport()
	report.RunID = runID
	var fatal error
	for out := range outCh {
		merged.Merge(out.index)
		report.merge(out.report)
		if out.err != nil && fatal == nil {
			fatal = out.err
		}
	}
	if fatal != nil {
		return nil, report, fatal
	}

	if err := s.store.WriteIndex(merged); err != nil {
		return nil, report, err
	}

	s.logger.Info("build pass complete",
		logging.String("run_id", runID),
		logging.Int("parents", report.Parents),
		logging.Int("evaluated", report.Evaluated),
		logging.Int("accepted", report.Accepted),
		logging.Int("written", report.Written),
		logging.Int("failures", report.Failures),
		logging.Bool("stopped_early", report.StoppedEarly))
	return merged, report, nil
}

// processParent evaluates every candidate of every target variant belonging
// to one parent entity.  Only fatal (configuration-level) errors propagate;
// everything else becomes a rejection or failure count.
func (s *Service) processParent(ctx context.Context, parent string, targets []Target, idx *model.Index, report *Report) error {
	mode := chem.AlignMode(s.cfg.AlignMode)

	for _, target := range targets {
		ref, err := s.molecules.GetMolecule(ctx, target.TargetID)
		if err != nil {
			if apperrors.IsFatal(err) {
				return err
			}
			s.logger.Warn("reference molecule unavailable, skipping target",
				logging.String("target_id", target.TargetID),
				logging.Err(err))
			report.Failures += len(target.Candidates)
			continue
		}
		if err := ref.Validate(); err != nil {
			s.logger.Warn("reference molecule malformed, skipping target",
				logging.String("target_id", target.TargetID),
				logging.Err(err))
			report.Failures += len(target.Candidates)
			continue
		}

		for _, cand := range target.Candidates {
			if idx.Counters[parent] >= s.cfg.MaxModelsPerParent {
				s.logger.Warn("model cap reached, remaining candidates skipped",
					logging.String("parent_id", parent),
					logging.Int("cap", s.cfg.MaxModelsPerParent))
				break
			}
			if err := s.processCandidate(ctx, parent, ref, cand, mode, idx, report); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) processCandidate(ctx context.Context, parent string, ref *domainchem.ReferenceMolecule, cand *model.CandidateMatch, mode chem.AlignMode, idx *model.Index, report *Report) error {
	report.Evaluated++
	s.metrics.CandidatesEvaluated.WithLabelValues(cand.SourceDB.String()).Inc()

	timer := metrics.NewTimer(s.metrics.AlignDuration)
	res, err := s.aligner.Align(ctx, ref, cand.CoordinatePath, mode)
	timer.ObserveDuration()
	if err == nil {
		err = res.Validate()
	}
	if err != nil {
		if apperrors.IsFatal(err) {
			return err
		}
		s.recordRejection(parent, cand, apperrors.GetCode(err), err.Error(), report)
		return nil
	}

	decision := s.policy.Evaluate(res, cand)
	if !decision.Accepted {
		s.recordRejection(parent, cand, decision.Code, decision.Reason, report)
		return nil
	}

	// The sequence number is allocated before the write so a failed write
	// burns it; gaps are accepted, reuse is not.
	seq := idx.NextLocalID(parent)
	modelID := model.FormatModelID(s.cfg.LocalPrefix, parent, seq)

	rec, err := s.writer.Write(ref, res, cand, decision, modelID)
	if err != nil {
		s.recordRejection(parent, cand, apperrors.GetCode(err), err.Error(), report)
		return nil
	}

	path, err := s.store.WriteModel(rec)
	if err != nil {
		if apperrors.IsFatal(err) {
			return err
		}
		s.logger.Error("model record not persisted",
			logging.String("model_id", modelID),
			logging.Err(err))
		report.Failures++
		return nil
	}

	idx.Add(rec)
	report.Accepted++
	report.Written++
	s.metrics.CandidatesAccepted.WithLabelValues(cand.SourceDB.String(), decision.Variant.String()).Inc()
	s.metrics.ModelsWritten.WithLabelValues(cand.SourceDB.String()).Inc()
	s.logger.Debug("model written",
		logging.String("model_id", modelID),
		logging.String("variant", decision.Variant.String()),
		logging.String("path", path))
	return nil
}

func (s *Service) recordRejection(parent string, cand *model.CandidateMatch, code apperrors.ErrorCode, reason string, report *Report) {
	report.Rejected[code.String()]++
	s.metrics.CandidatesRejected.WithLabelValues(cand.SourceDB.String(), code.String()).Inc()
	s.logger.Debug("candidate rejected",
		logging.String("parent_id", parent),
		logging.String("match_id", cand.MatchID),
		logging.String("code", code.String()),
		logging.String("reason", reason))
}

// groupByParent buckets targets by their parent entity so variant forms of
// the same entity share one sequence counter and one worker.
func groupByParent(targets []Target) map[string][]Target {
	byParent := make(map[string][]Target)
	for _, t := range targets {
		parent, _ := domainchem.SplitTargetID(t.TargetID)
		byParent[parent] = append(byParent[parent], t)
	}
	return byParent
}
