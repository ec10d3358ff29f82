package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/kmarszal/mesa-tumor-model/internal/persistence/objectstore"
)

// buildMirror reads TUMORSIM_S3_* and returns nil when mirroring is off.
func buildMirror(dataDir string, logger *slog.Logger) (*objectstore.Mirror, error) {
	if !envBool("TUMORSIM_S3_MIRROR", false) {
		return nil, nil
	}
	cfg := objectstore.Config{
		Endpoint:        strings.TrimSpace(os.Getenv("TUMORSIM_S3_ENDPOINT")),
		Bucket:          strings.TrimSpace(os.Getenv("TUMORSIM_S3_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("TUMORSIM_S3_REGION")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("TUMORSIM_S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("TUMORSIM_S3_SECRET_ACCESS_KEY")),
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("TUMORSIM_S3_MIRROR=true but TUMORSIM_S3_ENDPOINT/TUMORSIM_S3_BUCKET/TUMORSIM_S3_ACCESS_KEY_ID/TUMORSIM_S3_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := objectstore.New(cfg)
	if err != nil {
		return nil, err
	}
	return objectstore.NewMirror(client, objectstore.MirrorConfig{
		BaseDir: dataDir,
		Prefix:  strings.TrimSpace(os.Getenv("TUMORSIM_S3_PREFIX")),
		Workers: envInt("TUMORSIM_S3_UPLOAD_WORKERS", 2),
		Logger:  logger,
	}), nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
