package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

// Tuning is the on-disk run configuration: the model parameters plus driver settings.
type Tuning struct {
	Model tumor.Params `yaml:",inline"`

	TickRateHz           int  `yaml:"tick_rate_hz"`
	LogEveryTicks        int  `yaml:"log_every_ticks"`
	SegmentTicks         int  `yaml:"segment_ticks"`
	RecordConcentrations bool `yaml:"record_concentrations"`
	// SnapshotEveryTicks checkpoints the run; 0 disables snapshots.
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		Model:              tumor.DefaultParams(),
		TickRateHz:         5,
		LogEveryTicks:      1,
		SegmentTicks:       1000,
		SnapshotEveryTicks: 100,
	}
}

// Load reads path over Defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills unset driver settings.
func (t *Tuning) Normalize() {
	if t == nil {
		return
	}
	if t.LogEveryTicks <= 0 {
		t.LogEveryTicks = 1
	}
	if t.SegmentTicks <= 0 {
		t.SegmentTicks = 1000
	}
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.TickRateHz > 1000 {
		return fmt.Errorf("tick_rate_hz must be in [1, 1000]")
	}
	if t.LogEveryTicks < 0 {
		return fmt.Errorf("log_every_ticks must be >= 0")
	}
	if t.SegmentTicks < 0 {
		return fmt.Errorf("segment_ticks must be >= 0")
	}
	if t.SnapshotEveryTicks < 0 {
		return fmt.Errorf("snapshot_every_ticks must be >= 0")
	}
	return t.Model.Validate()
}

// Params returns the engine parameters.
func (t Tuning) Params() tumor.Params { return t.Model }
