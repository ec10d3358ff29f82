package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestClientPutFile(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotBody string
		gotHdr  http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath, gotBody, gotHdr = r.URL.Path, string(b), r.Header.Clone()
		mu.Unlock()
		if r.Method != http.MethodPut {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Bucket: "runs", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatal(err)
	}
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	local := filepath.Join(t.TempDir(), "run.json")
	writeFile(t, local, `{"run_id":"r"}`)
	if err := c.PutFile(context.Background(), "/r/run.json", local); err != nil {
		t.Fatalf("PutFile: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotPath != "/runs/r/run.json" || gotBody != `{"run_id":"r"}` {
		t.Fatalf("path=%q body=%q", gotPath, gotBody)
	}
	sum := sha256.Sum256([]byte(gotBody))
	if gotHdr.Get("x-amz-content-sha256") != hex.EncodeToString(sum[:]) {
		t.Fatalf("payload hash header=%q", gotHdr.Get("x-amz-content-sha256"))
	}
	if gotHdr.Get("x-amz-date") != "20260301T120000Z" {
		t.Fatalf("x-amz-date=%q", gotHdr.Get("x-amz-date"))
	}
	auth := gotHdr.Get("Authorization")
	if !strings.HasPrefix(auth, "AWS4-HMAC-SHA256 Credential=AK/20260301/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("Authorization=%q", auth)
	}
}

func TestClientPutFile_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		http.Error(rw, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, Bucket: "b", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatal(err)
	}
	local := filepath.Join(t.TempDir(), "x")
	writeFile(t, local, "x")
	err = c.PutFile(context.Background(), "x", local)
	if err == nil || !strings.Contains(err.Error(), "status=403") || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("err=%v", err)
	}
	if err := c.PutFile(context.Background(), "/", local); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestNew_Validates(t *testing.T) {
	if _, err := New(Config{Endpoint: "example.com", Bucket: "b"}); err == nil {
		t.Fatalf("expected missing credential error")
	}
	c, err := New(Config{Endpoint: "example.com/", Bucket: "b", AccessKeyID: "a", SecretAccessKey: "s", Region: "eu-west-1"})
	if err != nil {
		t.Fatal(err)
	}
	if c.endpoint != "https://example.com" || c.region != "eu-west-1" {
		t.Fatalf("endpoint=%q region=%q", c.endpoint, c.region)
	}
}

func TestSign_DependsOnSecret(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sig := func(secret string) string {
		c, err := New(Config{Endpoint: "http://localhost:9000", Bucket: "b", AccessKeyID: "a", SecretAccessKey: secret})
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodPut, "http://localhost:9000/b/k", nil)
		c.sign(req, "/b/k", sha256Hex(nil), at)
		return req.Header.Get("Authorization")
	}
	if sig("s1") != sig("s1") {
		t.Fatalf("signature not deterministic")
	}
	if sig("s1") == sig("s2") {
		t.Fatalf("signature ignores the secret")
	}
}

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	fail error
}

func (f *fakeUploader) PutFile(ctx context.Context, key, localPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestMirror_UploadsRelativeKeys(t *testing.T) {
	base := t.TempDir()
	a := filepath.Join(base, "runs", "r", "run.json")
	b := filepath.Join(base, "runs", "r", "snapshots", "00000010.snap.zst")
	writeFile(t, a, "{}")
	writeFile(t, b, "snap")
	outside := filepath.Join(t.TempDir(), "x")
	writeFile(t, outside, "x")

	up := &fakeUploader{}
	m := NewMirror(up, MirrorConfig{BaseDir: base, Prefix: "/tumorsim/"})
	m.Enqueue(a)
	m.Enqueue(b)
	m.Enqueue(outside)
	m.Enqueue(filepath.Join(base, "missing"))
	m.Close()
	m.Enqueue(a)

	sort.Strings(up.keys)
	want := []string{"tumorsim/runs/r/run.json", "tumorsim/runs/r/snapshots/00000010.snap.zst"}
	if strings.Join(up.keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys=%v want %v", up.keys, want)
	}
	st := m.Stats()
	if st.EnqueuedTotal != 4 || st.UploadSuccessTotal != 2 || st.UploadFailTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestMirror_RetriesThenFails(t *testing.T) {
	base := t.TempDir()
	p := filepath.Join(base, "f")
	writeFile(t, p, "x")

	m := NewMirror(&fakeUploader{fail: errors.New("boom")}, MirrorConfig{BaseDir: base, MaxAttempts: 2, Workers: 1})
	m.Enqueue(p)
	m.Close()
	if st := m.Stats(); st.UploadFailTotal != 1 || st.UploadSuccessTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestMirror_NilSafe(t *testing.T) {
	var m *Mirror
	m.Enqueue("x")
	m.Close()
	if m.Stats() != (Stats{}) {
		t.Fatalf("nil mirror stats not zero")
	}
}
