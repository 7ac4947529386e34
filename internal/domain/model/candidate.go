// Package model implements the match-acceptance policy, the model writer that
// projects an accepted alignment onto the reference naming scheme, and the
// per-run model index.
package model

import (
	"strconv"
	"strings"

	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
	"github.com/xtalforge/ccmodel/pkg/types/chem"
)

// CandidateMatch is one external-database entry proposed as a structural
// match for a reference molecule.  It is produced by the upstream search
// stage and read-only to the core.
type CandidateMatch struct {
	MatchID  string        `json:"match_id"`
	SourceDB chem.SourceDB `json:"source_db"`

	// CoordinatePath locates the experimental 3-D structure file handed to
	// the aligner.
	CoordinatePath string `json:"coordinate_path"`

	RFactor     float64 `json:"r_factor"`
	HasDisorder bool    `json:"has_disorder"`

	// Temperature is the diffraction temperature as free text from the
	// source record ("293 K", "at 120.0 deg.C", "100"); normalised to
	// Kelvin when a model is written.
	Temperature string `json:"temperature"`

	// RadiationSource is the experiment's radiation type; a neutron source
	// is recorded as a model feature.
	RadiationSource string `json:"radiation_source"`

	DOI       string `json:"doi"`
	DBVersion string `json:"db_version"`
}

// IsNeutronExperiment reports whether the candidate's structure was solved
// with neutron radiation.
func (c *CandidateMatch) IsNeutronExperiment() bool {
	return strings.Contains(strings.ToLower(c.RadiationSource), "neutron")
}

// celsiusToKelvin is the additive offset for deg.C temperature strings.
const celsiusToKelvin = 273.15

// NormalizeTemperature converts a free-text diffraction temperature to
// Kelvin.  Recognised shapes, case-insensitively:
//
//	"at 120 deg.C"  → 393.15
//	"293 K"         → 293
//	"100"           → 100 (bare numbers are assumed Kelvin)
//
// Failure to parse is reported as an error; callers log it and omit the
// temperature feature, never failing the model write.
func NormalizeTemperature(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, apperrors.Invalid("empty temperature string")
	}

	upper := strings.ToUpper(s)
	// Informal leading tokens from free-text source records.
	upper = strings.TrimSpace(strings.TrimPrefix(upper, "AT "))

	if strings.HasSuffix(upper, "DEG.C") {
		num := strings.TrimSpace(strings.TrimSuffix(upper, "DEG.C"))
		v, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, apperrors.Newf(apperrors.CodeInvalid, "unparseable celsius temperature %q", raw)
		}
		return v + celsiusToKelvin, nil
	}

	num := strings.TrimSpace(strings.TrimSuffix(upper, "K"))
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, apperrors.Newf(apperrors.CodeInvalid, "unparseable temperature %q", raw)
	}
	return v, nil
}
