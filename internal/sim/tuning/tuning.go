package tuning

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" env:"SHADOWBOX_PROTOCOL_VERSION"`

	GridSize            int `yaml:"grid_size"             env:"SHADOWBOX_GRID_SIZE"`
	AdvanceEveryMs      int `yaml:"advance_every_ms"      env:"SHADOWBOX_ADVANCE_EVERY_MS"`
	SnapshotEveryRounds int `yaml:"snapshot_every_rounds" env:"SHADOWBOX_SNAPSHOT_EVERY_ROUNDS"`

	// MaxQueue bounds the per-connection outbound queue.
	MaxQueue     int `yaml:"max_queue"     env:"SHADOWBOX_MAX_QUEUE"`
	IntakeBuffer int `yaml:"intake_buffer" env:"SHADOWBOX_INTAKE_BUFFER"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		GridSize:            5,
		AdvanceEveryMs:      0,
		SnapshotEveryRounds: 100,
		MaxQueue:            64,
		IntakeBuffer:        1024,
	}
}

// Load reads path over Defaults, then applies SHADOWBOX_* environment
// overrides. A missing file is not an error.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &t); err != nil {
				return t, fmt.Errorf("tuning.yaml: %w", err)
			}
		case !os.IsNotExist(err):
			return t, err
		}
	}
	if err := env.Parse(&t); err != nil {
		return t, fmt.Errorf("tuning env: %w", err)
	}
	return t, t.Validate()
}

func (t Tuning) Validate() error {
	if t.GridSize <= 0 {
		return fmt.Errorf("grid_size must be positive, got %d", t.GridSize)
	}
	if t.AdvanceEveryMs < 0 || t.SnapshotEveryRounds < 0 {
		return fmt.Errorf("advance_every_ms and snapshot_every_rounds must not be negative")
	}
	if t.MaxQueue <= 0 || t.IntakeBuffer <= 0 {
		return fmt.Errorf("max_queue and intake_buffer must be positive")
	}
	return nil
}

func (t Tuning) AdvanceEvery() time.Duration {
	return time.Duration(t.AdvanceEveryMs) * time.Millisecond
}
