package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/runner"
)

const DefaultSegmentTicks = 1000

// TickLogger writes one JSONL entry per tick into <runDir>/ticks/ticks-<first tick>.jsonl.zst,
// starting a new segment every segmentTicks ticks.
type TickLogger struct {
	w            *JSONLZstdWriter
	segmentTicks int
}

func NewTickLogger(runDir string, segmentTicks int) *TickLogger {
	if segmentTicks <= 0 {
		segmentTicks = DefaultSegmentTicks
	}
	return &TickLogger{
		w:            NewJSONLZstdWriter(filepath.Join(runDir, "ticks"), "ticks"),
		segmentTicks: segmentTicks,
	}
}

func (l *TickLogger) WriteTick(e runner.TickLogEntry) error {
	seg := e.Tick / l.segmentTicks * l.segmentTicks
	return l.w.Write(fmt.Sprintf("%08d", seg), e)
}

func (l *TickLogger) Close() error { return l.w.Close() }

// TickSegments lists the tick log segments of runDir in tick order.
func TickSegments(runDir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(runDir, "ticks", "ticks-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadTickLog streams every logged entry of runDir to fn in tick order. A non-nil error from fn
// stops the scan and is returned.
func ReadTickLog(runDir string, fn func(runner.TickLogEntry) error) error {
	paths, err := TickSegments(runDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no tick log segments under %s", runDir)
	}
	for _, p := range paths {
		if err := readSegment(p, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func readSegment(path string, fn func(runner.TickLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	for {
		var e runner.TickLogEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}
