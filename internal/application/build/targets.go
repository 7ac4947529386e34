package build

import (
	"encoding/json"
	"os"

	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

// LoadTargets reads the build work list: a JSON array of targets with their
// retrieved candidate matches, produced by the upstream search stage.
func LoadTargets(path string) ([]Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "read target list").WithDetail(path)
	}

	var targets []Target
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePathUnusable, "decode target list").WithDetail(path)
	}

	for _, t := range targets {
		if t.TargetID == "" {
			return nil, apperrors.New(apperrors.CodePathUnusable, "target list contains an entry without a target id")
		}
		for _, c := range t.Candidates {
			if c == nil || c.MatchID == "" || c.CoordinatePath == "" {
				return nil, apperrors.Newf(apperrors.CodePathUnusable,
					"target %s has a candidate without match id or coordinate path", t.TargetID)
			}
		}
	}
	return targets, nil
}
