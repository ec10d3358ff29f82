package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kmarszal/mesa-tumor-model/internal/logging"
)

type Uploader interface {
	PutFile(ctx context.Context, objectKey, localPath string) error
}

type Stats struct {
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
	EnqueuedTotal      uint64 `json:"enqueued_total"`
	DroppedTotal       uint64 `json:"dropped_total"`
	UploadSuccessTotal uint64 `json:"upload_success_total"`
	UploadFailTotal    uint64 `json:"upload_fail_total"`
	LastSuccessUnix    int64  `json:"last_success_unix"`
}

type MirrorConfig struct {
	// BaseDir is the local root; object keys are paths relative to it.
	BaseDir       string
	Prefix        string
	Workers       int
	QueueCapacity int
	EnqueueWait   time.Duration
	MaxAttempts   int
	Logger        *slog.Logger
}

// Mirror uploads files in the background. Enqueue never blocks longer than EnqueueWait.
type Mirror struct {
	up     Uploader
	cfg    MirrorConfig
	log    *slog.Logger
	jobs   chan string
	wg     sync.WaitGroup
	closed atomic.Bool
	once   sync.Once

	enqueuedTotal      atomic.Uint64
	droppedTotal       atomic.Uint64
	uploadSuccessTotal atomic.Uint64
	uploadFailTotal    atomic.Uint64
	lastSuccessUnix    atomic.Int64
}

func NewMirror(up Uploader, cfg MirrorConfig) *Mirror {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = 25 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	cfg.Prefix = strings.Trim(strings.ReplaceAll(cfg.Prefix, "\\", "/"), "/")
	m := &Mirror{
		up:   up,
		cfg:  cfg,
		log:  logging.OrNop(cfg.Logger).With("component", "mirror"),
		jobs: make(chan string, cfg.QueueCapacity),
	}
	for i := 0; i < cfg.Workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for localPath := range m.jobs {
				m.uploadOne(localPath)
			}
		}()
	}
	return m
}

func (m *Mirror) Enqueue(localPath string) {
	if m == nil || m.closed.Load() {
		return
	}
	m.enqueuedTotal.Add(1)
	select {
	case m.jobs <- localPath:
		return
	default:
	}
	timer := time.NewTimer(m.cfg.EnqueueWait)
	defer timer.Stop()
	select {
	case m.jobs <- localPath:
	case <-timer.C:
		dropped := m.droppedTotal.Add(1)
		m.log.Warn("upload dropped", "path", localPath, "reason", "queue_saturated", "dropped_total", dropped)
	}
}

// Close drains the queue and waits for in-flight uploads. Enqueue must not race with Close.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.once.Do(func() {
		m.closed.Store(true)
		close(m.jobs)
		m.wg.Wait()
	})
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:         len(m.jobs),
		QueueCapacity:      cap(m.jobs),
		EnqueuedTotal:      m.enqueuedTotal.Load(),
		DroppedTotal:       m.droppedTotal.Load(),
		UploadSuccessTotal: m.uploadSuccessTotal.Load(),
		UploadFailTotal:    m.uploadFailTotal.Load(),
		LastSuccessUnix:    m.lastSuccessUnix.Load(),
	}
}

func (m *Mirror) uploadOne(localPath string) {
	key, err := m.ObjectKey(localPath)
	if err != nil {
		m.log.Warn("upload skipped", "path", localPath, "err", err)
		return
	}
	if err := m.uploadWithRetry(key, localPath); err != nil {
		m.uploadFailTotal.Add(1)
		m.log.Error("upload failed", "key", key, "path", localPath, "err", err)
		return
	}
	m.uploadSuccessTotal.Add(1)
	m.lastSuccessUnix.Store(time.Now().UTC().Unix())
	m.log.Debug("uploaded", "key", key, "path", localPath)
}

func (m *Mirror) uploadWithRetry(key, localPath string) error {
	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := m.up.PutFile(ctx, key, localPath)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < m.cfg.MaxAttempts {
			time.Sleep(time.Duration(attempt*attempt) * 50 * time.Millisecond)
		}
	}
	return lastErr
}

// ObjectKey maps a local file under BaseDir to its object key.
func (m *Mirror) ObjectKey(localPath string) (string, error) {
	if localPath == "" {
		return "", fmt.Errorf("empty local path")
	}
	if _, err := os.Stat(localPath); err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(m.cfg.BaseDir)
	if err != nil {
		return "", err
	}
	absLocal, err := filepath.Abs(localPath)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absBase, absLocal)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("path %s is outside %s", absLocal, absBase)
	}
	if m.cfg.Prefix != "" {
		return path.Join(m.cfg.Prefix, rel), nil
	}
	return rel, nil
}
