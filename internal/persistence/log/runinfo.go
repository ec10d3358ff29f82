package log

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
)

const runInfoFile = "run.json"

// WriteRunInfo records the run's identity and parameters next to its tick log.
func WriteRunInfo(runDir string, info runner.RunInfo) error {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	tmp := filepath.Join(runDir, runInfoFile+".tmp")
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(runDir, runInfoFile))
}

func ReadRunInfo(runDir string) (runner.RunInfo, error) {
	var info runner.RunInfo
	b, err := os.ReadFile(filepath.Join(runDir, runInfoFile))
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal(b, &info); err != nil {
		return info, fmt.Errorf("%s: %w", runInfoFile, err)
	}
	return info, nil
}
