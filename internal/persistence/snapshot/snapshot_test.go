package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

func checkpointAt(t *testing.T, ticks int) (tumor.Checkpoint, string) {
	t.Helper()
	s, err := tumor.New(tumor.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < ticks; i++ {
		if _, err := s.Step(); err != nil {
			t.Fatal(err)
		}
	}
	cp, err := s.Checkpoint()
	if err != nil {
		t.Fatal(err)
	}
	return cp, s.Digest()
}

func TestWriteReadSnapshot(t *testing.T) {
	dir := t.TempDir()
	cp, digest := checkpointAt(t, 12)
	path := Path(dir, 12)
	in := SnapshotV1{
		Header:     Header{Version: Version, RunID: "r", Tick: 12, Digest: digest},
		Checkpoint: cp,
	}
	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file left behind: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("snapshot round trip mismatch")
	}
	restored, err := tumor.Restore(out.Checkpoint)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Digest() != digest {
		t.Fatalf("restored digest differs")
	}
}

func TestReadSnapshot_RejectsVersion(t *testing.T) {
	dir := t.TempDir()
	cp, _ := checkpointAt(t, 0)
	path := Path(dir, 0)
	if err := WriteSnapshot(path, SnapshotV1{Header: Header{Version: 9}, Checkpoint: cp}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if _, ok, err := Latest(dir, 100); err != nil || ok {
		t.Fatalf("empty dir: ok=%v err=%v", ok, err)
	}
	for _, tick := range []int{30, 10, 20} {
		cp, _ := checkpointAt(t, tick)
		if err := WriteSnapshot(Path(dir, tick), SnapshotV1{Header: Header{Version: Version, Tick: tick}, Checkpoint: cp}); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "snapshots", "junk.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ticks, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ticks, []int{10, 20, 30}) {
		t.Fatalf("List=%v", ticks)
	}

	snap, ok, err := Latest(dir, 25)
	if err != nil || !ok {
		t.Fatalf("Latest: ok=%v err=%v", ok, err)
	}
	if snap.Header.Tick != 20 || snap.Checkpoint.Tick() != 20 {
		t.Fatalf("Latest(25) tick=%d", snap.Header.Tick)
	}
	if _, ok, _ := Latest(dir, 5); ok {
		t.Fatalf("Latest(5) should find nothing")
	}
}
