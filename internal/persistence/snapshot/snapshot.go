// Package snapshot stores simulation checkpoints as zstd-compressed files: a JSON header line
// followed by the gob-encoded checkpoint.
package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	RunID   string `json:"run_id"`
	Tick    int    `json:"tick"`
	Digest  string `json:"digest"`
}

type SnapshotV1 struct {
	Header     Header           `json:"header"`
	Checkpoint tumor.Checkpoint `json:"checkpoint"`
}

// Path returns the snapshot file for tick under runDir.
func Path(runDir string, tick int) string {
	return filepath.Join(runDir, "snapshots", fmt.Sprintf("%08d.snap.zst", tick))
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func encode(f *os.File, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for tooling; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// List returns the ticks of every snapshot under runDir, ascending.
func List(runDir string) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(runDir, "snapshots"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ticks []int
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".snap.zst")
		if !ok || e.IsDir() {
			continue
		}
		tick, err := strconv.Atoi(name)
		if err != nil {
			continue
		}
		ticks = append(ticks, tick)
	}
	sort.Ints(ticks)
	return ticks, nil
}

// Latest returns the newest snapshot at or before tick. ok is false when none qualifies.
func Latest(runDir string, tick int) (snap SnapshotV1, ok bool, err error) {
	ticks, err := List(runDir)
	if err != nil {
		return snap, false, err
	}
	for i := len(ticks) - 1; i >= 0; i-- {
		if ticks[i] > tick {
			continue
		}
		snap, err = ReadSnapshot(Path(runDir, ticks[i]))
		if err != nil {
			return snap, false, err
		}
		return snap, true, nil
	}
	return snap, false, nil
}
