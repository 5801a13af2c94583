package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/skprof/internal/constants"
	"github.com/coral-mesh/skprof/internal/safe"
)

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Extensions selects script files, compared case-insensitively.
	// Empty means constants.DefaultScriptExtensions.
	Extensions []string
	// MaxFileSize caps each read. Zero means constants.DefaultMaxScriptSize.
	MaxFileSize int64
	// FollowSymlinks allows reading scripts through symlinks.
	FollowSymlinks bool
}

// Loader discovers and reads script files below a root directory.
type Loader struct {
	cfg    LoaderConfig
	logger zerolog.Logger
}

// NewLoader creates a loader.
func NewLoader(cfg LoaderConfig, logger zerolog.Logger) *Loader {
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = constants.DefaultScriptExtensions
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = constants.DefaultMaxScriptSize
	}
	return &Loader{
		cfg:    cfg,
		logger: logger.With().Str("component", "script_loader").Logger(),
	}
}

// Load walks root and returns every matching script with absolute paths,
// ordered by path. Unreadable files become warnings. An error is returned
// only when root itself cannot be walked or ctx is cancelled.
func (l *Loader) Load(ctx context.Context, root string) ([]File, []Warning, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve scripts directory: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat scripts directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("scripts path %q is not a directory", abs)
	}

	l.logger.Info().Str("root", abs).Msg("Loading script files")

	opts := &safe.ReadOptions{
		MaxSize:       l.cfg.MaxFileSize,
		AllowSymlinks: l.cfg.FollowSymlinks,
	}

	var (
		files    []File
		warnings []Warning
	)
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == abs {
				return walkErr
			}
			l.logger.Warn().Err(walkErr).Str("path", path).Msg("Failed to read script directory entry")
			warnings = append(warnings, Warning{Path: path, Message: walkErr.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !l.matches(path) {
			return nil
		}

		lines, err := safe.ReadLines(path, opts)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Failed to load script")
			warnings = append(warnings, Warning{Path: path, Message: err.Error()})
			return nil
		}
		files = append(files, File{Path: path, Lines: lines})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk scripts directory: %w", err)
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	l.logger.Info().Int("files", len(files)).Int("skipped", len(warnings)).Msg("Loaded script files")

	return files, warnings, nil
}

func (l *Loader) matches(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range l.cfg.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Dir binds a Loader to a root directory.
type Dir struct {
	Loader *Loader
	Root   string
}

// Load reads every script below Root. Per-file problems are logged and
// returned as warnings.
func (d Dir) Load(ctx context.Context) ([]File, []Warning, error) {
	return d.Loader.Load(ctx, d.Root)
}
