package assembly

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/xtalforge/ccmodel/internal/domain/model"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
)

// Filter reason labels used in the report's filtered-count map.
const (
	FilterRFactor   = "r_factor_above_limit"
	FilterSuperseded = "superseded_by_canonical"
	FilterDuplicate = "duplicate_match_id"
)

// consistencyTolerance is the allowed per-category row-count spread across
// one parent's assembled models before a data-quality warning is raised.
const consistencyTolerance = 1

// Options parameterises one assembly pass.  The duplicate-suppression and
// canonical-supremacy switches exist for replaying historical releases that
// predate those policies; production runs enable both.
type Options struct {
	MaxRFactor         float64
	PublicPrefix       string
	SuppressDuplicates bool
	CanonicalSupremacy bool
}

// Report aggregates the outcome of one assembly pass.
type Report struct {
	Assembled int
	Reused    int
	Minted    int
	Filtered  map[string]int
	Warnings  []string
}

// Reconciler performs the single-pass merge of a build's model index against
// the prior-audit index.  Assembly is not parallelised: it needs a
// consistent global view of identifier continuity, and it is idempotent over
// unchanged inputs.
type Reconciler struct {
	opts   Options
	logger logging.Logger
}

// NewReconciler constructs a Reconciler.  logger may be nil.
func NewReconciler(opts Options, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Reconciler{opts: opts, logger: logger}
}

// Assemble relabels, deduplicates, and filters the index's models into the
// publishable set.  Records are mutated in place (identifier relabeling and
// audit-date restoration); the returned slice is ordered by parent and then
// by selection priority.
func (r *Reconciler) Assemble(index *model.Index, prior PriorAudit) ([]*model.ModelRecord, *Report) {
	report := &Report{Filtered: make(map[string]int)}
	var assembled []*model.ModelRecord

	for _, parentID := range index.Parents() {
		accepted := r.assembleParent(parentID, index.Models(parentID), prior, report)
		assembled = append(assembled, accepted...)
		r.checkConsistency(parentID, accepted, report)
	}

	report.Assembled = len(assembled)
	return assembled, report
}

// assembleParent runs selection, continuity, and numbering for one parent.
func (r *Reconciler) assembleParent(parentID string, models []*model.ModelRecord, prior PriorAudit, report *Report) []*model.ModelRecord {
	// Selection order: models with a known prior public identity first, then
	// canonical before tautomer/protomer, then better (lower) R-factor.
	// Priors sorting first is load-bearing for numbering: every reused
	// sequence number is registered before any fresh one is minted.
	sorted := make([]*model.ModelRecord, len(models))
	copy(sorted, models)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi := boolRank(hasPrior(prior, parentID, sorted[i]))
		pj := boolRank(hasPrior(prior, parentID, sorted[j]))
		if pi != pj {
			return pi < pj
		}
		if vi, vj := sorted[i].Variant.Rank(), sorted[j].Variant.Rank(); vi != vj {
			return vi < vj
		}
		return sorted[i].RFactor < sorted[j].RFactor
	})

	var accepted []*model.ModelRecord
	numCanonicalSeen := 0
	seenMatchIDs := make(map[string]struct{})
	maxSeq := 0

	for _, rec := range sorted {
		if rec.RFactor > r.opts.MaxRFactor {
			report.Filtered[FilterRFactor]++
			continue
		}
		if r.opts.CanonicalSupremacy && numCanonicalSeen > 0 && rec.Variant.Rank() > 0 {
			report.Filtered[FilterSuperseded]++
			continue
		}
		if r.opts.SuppressDuplicates {
			if _, dup := seenMatchIDs[rec.MatchID]; dup {
				report.Filtered[FilterDuplicate]++
				continue
			}
		}

		if priorRec, ok := prior.Lookup(parentID, rec.SourceDB, rec.MatchID); ok {
			if n := prior.countClaims(parentID, rec.SourceDB, rec.MatchID); n > 1 {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"parent %s: %d prior records claim match (%s, %s); first wins as %s",
					parentID, n, rec.SourceDB, rec.MatchID, priorRec.ModelID))
			}
			rec.Relabel(priorRec.ModelID)
			rec.SetAuditDate(priorRec.AuditDate)
			if seq, err := SequenceOf(priorRec.ModelID); err == nil {
				if seq > maxSeq {
					maxSeq = seq
				}
			} else {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"parent %s: prior identifier %s has no parseable sequence", parentID, priorRec.ModelID))
			}
			report.Reused++
		} else {
			maxSeq++
			rec.Relabel(model.FormatModelID(r.opts.PublicPrefix, parentID, maxSeq))
			report.Minted++
		}

		accepted = append(accepted, rec)
		seenMatchIDs[rec.MatchID] = struct{}{}
		if rec.Variant.Rank() == 0 {
			numCanonicalSeen++
		}
	}

	return accepted
}

// checkConsistency verifies that per-category row counts across one parent's
// assembled models stay within tolerance.  Advisory only: divergence flags
// silent alignment degradation but never halts the pipeline.  Heavy-atom-only
// models legitimately carry fewer rows and are excluded; feature-table counts
// vary with candidate metadata and are not compared.
func (r *Reconciler) checkConsistency(parentID string, models []*model.ModelRecord, report *Report) {
	var counts []model.RowCounts
	for _, rec := range models {
		if rec.HasFeature("heavy_atoms_only") {
			continue
		}
		counts = append(counts, rec.Counts())
	}
	if len(counts) < 2 {
		return
	}

	check := func(category string, pick func(model.RowCounts) int) {
		lo, hi := pick(counts[0]), pick(counts[0])
		for _, c := range counts[1:] {
			v := pick(c)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo > consistencyTolerance {
			msg := fmt.Sprintf("parent %s: %s row counts diverge (%d..%d)", parentID, category, lo, hi)
			report.Warnings = append(report.Warnings, msg)
			r.logger.Warn("assembled model row counts diverge",
				logging.String("parent_id", parentID),
				logging.String("category", category),
				logging.Int("min", lo),
				logging.Int("max", hi))
		}
	}

	check("atom", func(c model.RowCounts) int { return c.Atoms })
	check("bond", func(c model.RowCounts) int { return c.Bonds })
	check("descriptor", func(c model.RowCounts) int { return c.Descriptors })
	check("audit", func(c model.RowCounts) int { return c.Audit })
}

// SequenceOf extracts the numeric sequence from a model identifier of the
// shape <prefix>_<parentId>_<NNNNN>.  Parent identifiers may themselves
// contain underscores, so only the final segment is numeric.
func SequenceOf(modelID string) (int, error) {
	i := strings.LastIndex(modelID, "_")
	if i < 0 || i == len(modelID)-1 {
		return 0, fmt.Errorf("assembly: identifier %q has no sequence segment", modelID)
	}
	seq, err := strconv.Atoi(modelID[i+1:])
	if err != nil {
		return 0, fmt.Errorf("assembly: identifier %q has non-numeric sequence: %w", modelID, err)
	}
	return seq, nil
}

func hasPrior(prior PriorAudit, parentID string, rec *model.ModelRecord) bool {
	_, ok := prior.Lookup(parentID, rec.SourceDB, rec.MatchID)
	return ok
}

func boolRank(b bool) int {
	if b {
		return 0
	}
	return 1
}
