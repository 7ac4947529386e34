package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xtalforge/ccmodel/internal/domain/alignment"
	"github.com/xtalforge/ccmodel/internal/domain/chem"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	chemtypes "github.com/xtalforge/ccmodel/pkg/types/chem"
)

// syntheticAtomPrefix names atoms added for unmapped extra protons.  The
// prefix cannot collide with dictionary atom names, which never start with
// "HEX" followed by a bare ordinal.
const syntheticAtomPrefix = "HEX"

// Writer projects an accepted alignment into a ModelRecord, using the
// reference molecule's bond graph as the structural template.  It performs
// no I/O; persistence belongs to the model store.
type Writer struct {
	logger logging.Logger
	now    func() time.Time
}

// NewWriter constructs a Writer.  logger may be nil.
func NewWriter(logger logging.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{logger: logger, now: time.Now}
}

// Write builds the model record for one accepted candidate.
//
// Atom rows are emitted in reference declaration order for every reference
// atom present in the atom map; reference atoms absent from the map are
// silently dropped and surface only as a feature flag.  One synthetic atom
// row is appended per unmapped extra proton.  Bond rows keep only reference
// bonds whose endpoints both survived, plus one single bond from each
// synthetic atom to each of its mapped neighbours.
func (w *Writer) Write(ref *chem.ReferenceMolecule, res *alignment.Result, cand *CandidateMatch, decision Decision, modelID string) (*ModelRecord, error) {
	if missing := res.RefDescriptors.MissingRequired(); len(missing) > 0 {
		return nil, apperrors.Newf(apperrors.CodeIncompleteAlignment,
			"reference molecule missing descriptor %s", missing[0])
	}
	if missing := res.FitDescriptors.MissingRequired(); len(missing) > 0 {
		return nil, apperrors.Newf(apperrors.CodeIncompleteAlignment,
			"fit molecule missing descriptor %s", missing[0])
	}

	// Defense in depth: the policy already ran this check on the
	// protonation-variant path, but the writer must never emit a synthetic
	// bond to an unmapped endpoint.
	if err := res.CheckUnmappedNeighbors(); err != nil {
		return nil, err
	}

	// A variant reference definition (a tautomer/protomer form generated
	// upstream, carried in the composite target id) always yields a
	// tautomer_protomer model: even a perfect match against it is an
	// alternate protonation state of the parent, never canonical.
	variant := decision.Variant
	if ref.IsVariant() {
		variant = chemtypes.VariantTautomerProtomer
	}

	rec := &ModelRecord{
		ModelID:        modelID,
		ParentID:       ref.ParentID(),
		SourceTargetID: ref.TargetID,
		MatchID:        cand.MatchID,
		SourceDB:       cand.SourceDB,
		Variant:        variant,
		RFactor:        cand.RFactor,
	}

	// ── Atom table ────────────────────────────────────────────────────────────
	retained := make(map[string]struct{}, len(res.AtomMap))
	var droppedNonHydrogen, droppedAny bool
	for _, a := range ref.Atoms {
		fit, ok := res.AtomMap[a.Name]
		if !ok {
			droppedAny = true
			if !a.IsHydrogen() {
				droppedNonHydrogen = true
			}
			continue
		}
		retained[a.Name] = struct{}{}
		rec.Atoms = append(rec.Atoms, AtomRow{
			ModelID:      modelID,
			Name:         a.Name,
			Element:      a.Element,
			FormalCharge: fit.FormalCharge,
			X:            fit.X,
			Y:            fit.Y,
			Z:            fit.Z,
		})
	}

	syntheticNames := make([]string, len(res.UnmappedFitAtoms))
	for i, u := range res.UnmappedFitAtoms {
		name := fmt.Sprintf("%s%d", syntheticAtomPrefix, i)
		syntheticNames[i] = name
		rec.Atoms = append(rec.Atoms, AtomRow{
			ModelID:      modelID,
			Name:         name,
			Element:      u.Atom.Element,
			FormalCharge: u.Atom.FormalCharge,
			X:            u.Atom.X,
			Y:            u.Atom.Y,
			Z:            u.Atom.Z,
		})
	}

	// ── Bond table ────────────────────────────────────────────────────────────
	for _, b := range ref.Bonds {
		if _, ok := retained[b.Atom1]; !ok {
			continue
		}
		if _, ok := retained[b.Atom2]; !ok {
			continue
		}
		rec.Bonds = append(rec.Bonds, BondRow{
			ModelID: modelID, Atom1: b.Atom1, Atom2: b.Atom2, Order: b.Order,
		})
	}
	for i, u := range res.UnmappedFitAtoms {
		for _, neighbor := range u.Neighbors {
			rec.Bonds = append(rec.Bonds, BondRow{
				ModelID: modelID,
				Atom1:   neighbor,
				Atom2:   syntheticNames[i],
				Order:   chemtypes.BondSingle,
			})
		}
	}

	// ── Descriptor table ──────────────────────────────────────────────────────
	descriptorOrder := []chemtypes.DescriptorType{
		chemtypes.DescriptorFormula,
		chemtypes.DescriptorSMILES,
		chemtypes.DescriptorSMILESStereo,
		chemtypes.DescriptorInChI,
		chemtypes.DescriptorInChIKey,
	}
	for _, dt := range descriptorOrder {
		if v := res.FitDescriptors[dt]; v != "" {
			rec.Descriptors = append(rec.Descriptors, DescriptorRow{
				ModelID: modelID, Type: dt, Value: v,
			})
		}
	}

	// ── Feature table ─────────────────────────────────────────────────────────
	rec.Features = w.deriveFeatures(modelID, cand, droppedAny, droppedNonHydrogen)

	// ── Audit and reference tables ────────────────────────────────────────────
	rec.Audit = []AuditRow{{
		ModelID: modelID,
		Action:  AuditActionInitialRelease,
		Date:    w.now().Format(AuditDateLayout),
	}}
	rec.References = []ReferenceRow{{
		ModelID:  modelID,
		SourceDB: cand.SourceDB,
		MatchID:  cand.MatchID,
		DOI:      cand.DOI,
	}}

	return rec, nil
}

// deriveFeatures builds the feature table for one model.  Temperature
// normalisation failures are logged and the feature omitted; nothing here is
// fatal.
func (w *Writer) deriveFeatures(modelID string, cand *CandidateMatch, droppedAny, droppedNonHydrogen bool) []FeatureRow {
	add := func(rows []FeatureRow, name, value string) []FeatureRow {
		return append(rows, FeatureRow{ModelID: modelID, Name: name, Value: value})
	}

	rows := add(nil, chemtypes.FeatureRFactor, fmt.Sprintf("%.3f", cand.RFactor))

	if cand.Temperature != "" {
		if kelvin, err := NormalizeTemperature(cand.Temperature); err == nil {
			rows = add(rows, chemtypes.FeatureExperimentTemp, strconv.FormatFloat(kelvin, 'f', 2, 64))
		} else {
			w.logger.Info("temperature not normalised, feature omitted",
				logging.String("model_id", modelID),
				logging.String("raw", cand.Temperature),
				logging.Err(err))
		}
	}

	if cand.DOI != "" {
		rows = add(rows, chemtypes.FeaturePublicationDOI, cand.DOI)
	}
	if cand.DBVersion != "" {
		rows = add(rows, chemtypes.FeatureSourceDBVersion, cand.DBVersion)
	}
	if cand.IsNeutronExperiment() {
		rows = add(rows, chemtypes.FeatureNeutronExperiment, "Y")
	}
	if cand.HasDisorder {
		rows = add(rows, chemtypes.FeatureHasDisorder, "Y")
	}

	switch {
	case !droppedAny:
		rows = add(rows, chemtypes.FeatureAllAtomSites, "Y")
	case !droppedNonHydrogen:
		rows = add(rows, chemtypes.FeatureHeavyAtomsOnly, "Y")
	default:
		// Dropped non-hydrogen coverage slipped past the policy; record
		// neither flag and leave a trace for the data-quality review.
		w.logger.Warn("model drops non-hydrogen reference atoms",
			logging.String("model_id", modelID))
	}
	return rows
}
