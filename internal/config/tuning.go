package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"routedash/internal/stats"
)

// LoadTuning reads engine constants from a YAML file over the defaults. A
// missing file yields the defaults; a malformed or out-of-range file is an error.
func LoadTuning(path string) (stats.Tuning, error) {
	tuning := stats.DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tuning, nil
		}
		return tuning, fmt.Errorf("failed to read tuning file: %w", err)
	}

	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return stats.DefaultTuning(), fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	if err := validateTuning(tuning); err != nil {
		return stats.DefaultTuning(), fmt.Errorf("invalid tuning file %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Loaded engine tuning")
	return tuning, nil
}

func validateTuning(t stats.Tuning) error {
	c := t.Catchup
	if c.ParcelsRatio <= 0 || c.LettersRatio <= 0 || c.RouteRatio <= 0 {
		return errors.New("catch-up ratios must be positive")
	}
	if c.RecommendedWeight <= 0 || c.RecommendedWeight > 1 {
		return errors.New("catch-up recommended_weight must be in (0, 1]")
	}
	if t.Residuals.TopN <= 0 || t.Residuals.OutlierZ <= 0 {
		return errors.New("residual top_n and outlier_z must be positive")
	}
	lw := t.LetterWeight
	if lw.Alpha <= 0 || lw.Alpha > 1 {
		return errors.New("letter_weight alpha must be in (0, 1]")
	}
	if lw.Min < 0 || lw.Min > lw.Max {
		return errors.New("letter_weight bounds must satisfy 0 <= min <= max")
	}
	if lw.TrailingSample <= 0 || t.RollingDays <= 0 || t.AnchorWeeks <= 0 || t.CompareWindow <= 0 {
		return errors.New("sample sizes and windows must be positive")
	}
	return nil
}
