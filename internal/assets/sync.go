package assets

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// SyncResult reports what a sync copied
type SyncResult struct {
	Copied  []string
	Skipped []string
	Files   int
}

// Sync copies each folder from sourceRoot into publicDir, overwriting
// existing files. Missing source folders are skipped with a warning; the
// first copy error aborts the sync.
func Sync(ctx context.Context, sourceRoot, publicDir string, folders []string, logger *slog.Logger) (*SyncResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("starting email copy", slog.String("source", sourceRoot), slog.String("destination", publicDir))

	result := &SyncResult{}
	for _, folder := range folders {
		src := filepath.Join(sourceRoot, folder)
		dst := filepath.Join(publicDir, folder)

		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			logger.Warn("source directory not found", slog.String("path", src))
			result.Skipped = append(result.Skipped, folder)
			continue
		}

		n, err := copyTree(ctx, src, dst)
		result.Files += n
		if err != nil {
			logger.Error("error copying folder", slog.String("folder", folder), slog.Any("error", err))
			return result, fmt.Errorf("failed to copy %s: %w", folder, err)
		}

		result.Copied = append(result.Copied, folder)
		logger.Info("copied folder",
			slog.String("folder", folder),
			slog.String("destination", dst),
			slog.Int("files", n))
	}

	logger.Info("email copy complete",
		slog.Int("folders", len(result.Copied)),
		slog.Int("files", result.Files))
	return result, nil
}

// copyTree copies the directory src to dst and returns the number of files written
func copyTree(ctx context.Context, src, dst string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
