/*
DESCRIPTION
  config.go provides loading and validation of the user-study TOML
  configuration; per video, a number of attempts and a list of delay
  records each carrying ten named quality presets.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package study

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// PresetCount is the number of quality presets per delay record,
// addressable by the digit keys.
const PresetCount = 10

// QualityPreset is a per-trial quality tuple.
type QualityPreset struct {
	FGSize uint    `toml:"fg_size"` // Fovea radius in macroblocks.
	FGCRF  float64 `toml:"fg_crf"`
	BGSize uint    `toml:"bg_size"` // Background stream width in px.
	BGCRF  float64 `toml:"bg_crf"`
}

// Delay is one artificial-delay record with its ten quality presets.
type Delay struct {
	DelayMS uint          `toml:"delay"`
	Q0      QualityPreset `toml:"q0"`
	Q1      QualityPreset `toml:"q1"`
	Q2      QualityPreset `toml:"q2"`
	Q3      QualityPreset `toml:"q3"`
	Q4      QualityPreset `toml:"q4"`
	Q5      QualityPreset `toml:"q5"`
	Q6      QualityPreset `toml:"q6"`
	Q7      QualityPreset `toml:"q7"`
	Q8      QualityPreset `toml:"q8"`
	Q9      QualityPreset `toml:"q9"`
}

// Preset returns preset i of the record; i must be in [0, PresetCount).
func (d *Delay) Preset(i int) QualityPreset {
	return [PresetCount]QualityPreset{d.Q0, d.Q1, d.Q2, d.Q3, d.Q4, d.Q5, d.Q6, d.Q7, d.Q8, d.Q9}[i]
}

// Plan is the study plan of one video source.
type Plan struct {
	Attempts int     `toml:"attempts"`
	Delays   []Delay `toml:"delays"`
}

// Load reads the study configuration at path; a TOML mapping of video
// keys to plans.
func Load(path string) (map[string]Plan, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not read study config")
	}

	var plans map[string]Plan
	err = toml.Unmarshal(b, &plans)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse study config")
	}

	for key, p := range plans {
		err = validatePlan(p)
		if err != nil {
			return nil, errors.Wrapf(err, "bad plan for %q", key)
		}
	}
	return plans, nil
}

func validatePlan(p Plan) error {
	if p.Attempts < 1 {
		return errors.Errorf("attempts %d; must be at least 1", p.Attempts)
	}
	if len(p.Delays) == 0 {
		return errors.New("no delay records")
	}
	for i, d := range p.Delays {
		for q := 0; q < PresetCount; q++ {
			ps := d.Preset(q)
			if ps.FGSize == 0 {
				return errors.Errorf("delay %d preset q%d: fg_size must be non-zero", i, q)
			}
			if ps.BGSize == 0 || ps.BGSize%16 != 0 {
				return errors.Errorf("delay %d preset q%d: bg_size %d not a non-zero multiple of 16", i, q, ps.BGSize)
			}
			if ps.FGCRF < 0 || ps.FGCRF > 51 || ps.BGCRF < 0 || ps.BGCRF > 51 {
				return errors.Errorf("delay %d preset q%d: CRF out of range", i, q)
			}
		}
	}
	return nil
}
