package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	get "github.com/hashicorp/go-getter"
)

// IsRemote reports whether src needs a download before it can be loaded.
func IsRemote(src string) bool {
	if strings.Contains(src, "::") {
		return true
	}
	for _, scheme := range []string{"http://", "https://", "s3://", "gcs://", "git@"} {
		if strings.HasPrefix(src, scheme) {
			return true
		}
	}
	return false
}

// Fetch resolves src to a local file. Local paths are returned unchanged; anything
// go-getter understands (http, s3, gcs, git::...) is downloaded into dir.
func Fetch(ctx context.Context, src, dir string) (string, error) {
	if !IsRemote(src) {
		return src, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create fetch dir: %w", err)
	}
	dst := filepath.Join(dir, "terrain.yaml")
	if err := os.RemoveAll(dst); err != nil {
		return "", fmt.Errorf("clear fetch target: %w", err)
	}
	if err := get.GetFile(dst, src, get.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("fetch config %s: %w", src, err)
	}
	return dst, nil
}

// LoadFrom fetches src if needed and loads it.
func LoadFrom(ctx context.Context, src, dir string) (*File, error) {
	path, err := Fetch(ctx, src, dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}
