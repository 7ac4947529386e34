// Package chem holds the shared enumerated types and descriptor vocabulary
// used across the build and assembly pipelines.  Types here are plain values
// with no behavior beyond validation and parsing, so every layer can depend
// on them without import cycles.
package chem

import "fmt"

// ─────────────────────────────────────────────────────────────────────────────
// Alignment mode
// ─────────────────────────────────────────────────────────────────────────────

// AlignMode selects the graph-matching tolerance used by the aligner.
type AlignMode string

const (
	// ModeStrict requires an exact substructure match.
	ModeStrict AlignMode = "strict"
	// ModeRelaxed permits element-graph matching without stereo perception.
	ModeRelaxed AlignMode = "relaxed"
	// ModeRelaxedStereo permits relaxed matching with stereo retained on the
	// descriptor comparison.  This is the production default.
	ModeRelaxedStereo AlignMode = "relaxed-stereo"
)

// IsValid reports whether the mode is one of the recognised values.
func (m AlignMode) IsValid() bool {
	switch m {
	case ModeStrict, ModeRelaxed, ModeRelaxedStereo:
		return true
	}
	return false
}

func (m AlignMode) String() string { return string(m) }

// ParseAlignMode converts a string into an AlignMode, rejecting unknown values.
func ParseAlignMode(s string) (AlignMode, error) {
	m := AlignMode(s)
	if !m.IsValid() {
		return "", fmt.Errorf("chem: unknown align mode %q", s)
	}
	return m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Variant classification
// ─────────────────────────────────────────────────────────────────────────────

// VariantType classifies how a model relates to its reference definition.
type VariantType string

const (
	// VariantCanonical marks a model whose atom and stereochemistry coverage
	// matches the reference exactly or heavy-atom-only.
	VariantCanonical VariantType = "canonical"
	// VariantTautomerProtomer marks a model representing an alternate
	// protonation or tautomeric state with accepted extra hydrogens.
	VariantTautomerProtomer VariantType = "tautomer_protomer"
)

// Rank returns the sort priority of the variant during assembly: canonical
// models order before tautomer/protomer models.
func (v VariantType) Rank() int {
	if v == VariantCanonical {
		return 0
	}
	return 1
}

func (v VariantType) String() string { return string(v) }

// ─────────────────────────────────────────────────────────────────────────────
// Source database
// ─────────────────────────────────────────────────────────────────────────────

// SourceDB identifies the external crystal-structure database a candidate
// match came from.
type SourceDB string

const (
	SourceCSD SourceDB = "CSD"
	SourceCOD SourceDB = "COD"
)

func (s SourceDB) String() string { return string(s) }

// ─────────────────────────────────────────────────────────────────────────────
// Descriptors
// ─────────────────────────────────────────────────────────────────────────────

// DescriptorType names one chemical descriptor attached to a molecule.
type DescriptorType string

const (
	DescriptorFormula      DescriptorType = "Formula"
	DescriptorSMILES       DescriptorType = "SMILES"
	DescriptorSMILESStereo DescriptorType = "SMILES_STEREO"
	DescriptorInChI        DescriptorType = "InChI"
	DescriptorInChIKey     DescriptorType = "InChIKey"
)

// RequiredDescriptors lists the descriptor keys every alignment result must
// carry for both molecules before a model can be written.
var RequiredDescriptors = []DescriptorType{
	DescriptorSMILES,
	DescriptorSMILESStereo,
	DescriptorInChI,
	DescriptorInChIKey,
}

// DescriptorSet maps descriptor names to their string values for one molecule.
type DescriptorSet map[DescriptorType]string

// MissingRequired returns the required descriptor keys absent or empty in the
// set, in RequiredDescriptors order.
func (d DescriptorSet) MissingRequired() []DescriptorType {
	var missing []DescriptorType
	for _, key := range RequiredDescriptors {
		if d[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// ─────────────────────────────────────────────────────────────────────────────
// Bonds and atoms
// ─────────────────────────────────────────────────────────────────────────────

// BondOrder is the bond order vocabulary of the component dictionary format.
type BondOrder string

const (
	BondSingle   BondOrder = "SING"
	BondDouble   BondOrder = "DOUB"
	BondTriple   BondOrder = "TRIP"
	BondAromatic BondOrder = "AROM"
)

// AtomicNumberHydrogen is the atomic number distinguishing protons in
// unmapped-atom checks.
const AtomicNumberHydrogen = 1

// ─────────────────────────────────────────────────────────────────────────────
// Feature vocabulary
// ─────────────────────────────────────────────────────────────────────────────

// Feature names recorded on a model's feature table.
const (
	FeatureRFactor           = "r_factor"
	FeatureExperimentTemp    = "experiment_temperature"
	FeaturePublicationDOI    = "publication_doi"
	FeatureSourceDBVersion   = "source_db_version"
	FeatureNeutronExperiment = "neutron_radiation_experiment"
	FeatureHasDisorder       = "has_disorder"
	FeatureHeavyAtomsOnly    = "heavy_atoms_only"
	FeatureAllAtomSites      = "all_atoms_have_sites"
)
