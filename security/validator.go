package security

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/isdmx/buildbox/builderr"
)

// ErrSizeExceeded is wrapped by every size-ceiling violation.
var ErrSizeExceeded = errors.New("size exceeded")

const bytesPerMB = 1024 * 1024

// Default ceilings.
const (
	DefaultMaxTotalBytes int64 = 500 * bytesPerMB
	DefaultMaxFileBytes  int64 = 100 * bytesPerMB
)

// suspiciousPatterns is the fixed advisory pattern set.
var suspiciousPatterns = []string{
	"eval(",
	"exec(",
	"child_process",
	"rm -rf",
	"curl",
	"wget",
	"/etc/passwd",
	"process.env",
}

var textExtensions = map[string]bool{
	".js":   true,
	".mjs":  true,
	".cjs":  true,
	".ts":   true,
	".jsx":  true,
	".tsx":  true,
	".json": true,
	".html": true,
	".htm":  true,
	".css":  true,
	".sh":   true,
	".py":   true,
	".yml":  true,
	".yaml": true,
}

// skippedDirs are never counted or scanned, at any depth.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// Limits configures the size ceilings.
type Limits struct {
	MaxTotalBytes int64
	MaxFileBytes  int64
}

// DefaultLimits returns the 500 MiB aggregate / 100 MiB per-file ceilings.
func DefaultLimits() Limits {
	return Limits{MaxTotalBytes: DefaultMaxTotalBytes, MaxFileBytes: DefaultMaxFileBytes}
}

// LimitsFromMB builds Limits from megabyte values as they appear in config.
func LimitsFromMB(totalMB, fileMB int64) Limits {
	return Limits{
		MaxTotalBytes: totalMB * bytesPerMB,
		MaxFileBytes:  fileMB * bytesPerMB,
	}
}

// Finding is one suspicious pattern match.
type Finding struct {
	Path    string
	Pattern string
}

// Report summarizes a passing validation.
type Report struct {
	TotalBytes int64
	Files      int
	Findings   []Finding
}

// Validator screens source trees.
type Validator struct {
	logger *zap.Logger
	limits Limits
}

// NewValidator creates a Validator. Non-positive limits fall back to the defaults.
func NewValidator(logger *zap.Logger, limits Limits) *Validator {
	if limits.MaxTotalBytes <= 0 {
		limits.MaxTotalBytes = DefaultMaxTotalBytes
	}
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = DefaultMaxFileBytes
	}
	return &Validator{logger: logger, limits: limits}
}

// Validate checks the tree rooted at root. It fails only with a security
// violation wrapping ErrSizeExceeded, or an infrastructure error when the
// tree cannot be walked. The source tree is never modified.
func (v *Validator) Validate(ctx context.Context, root string) (Report, error) {
	total, files, err := v.measure(ctx, root)
	if err != nil {
		return Report{}, err
	}

	findings := v.scan(ctx, root)

	v.logger.Debug("source tree measured",
		zap.String("path", root),
		zap.Int64("total_bytes", total),
		zap.Int("files", files),
		zap.Int("findings", len(findings)))

	return Report{TotalBytes: total, Files: files, Findings: findings}, nil
}

// measure walks the tree summing regular file sizes. Symlinks are counted
// by their own size and never followed.
func (v *Validator) measure(ctx context.Context, root string) (total int64, files int, err error) {
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		size := info.Size()
		if size > v.limits.MaxFileBytes {
			return builderr.SecurityViolation(ErrSizeExceeded,
				"file too large: %s (%d bytes, max: %d)", relPath(root, path), size, v.limits.MaxFileBytes)
		}

		total += size
		files++
		if total > v.limits.MaxTotalBytes {
			return builderr.SecurityViolation(ErrSizeExceeded,
				"project size exceeds limit: more than %d bytes (max: %d)", total, v.limits.MaxTotalBytes)
		}
		return nil
	})

	if walkErr != nil {
		var be *builderr.Error
		if errors.As(walkErr, &be) {
			v.logger.Warn("security validation failed", zap.String("path", root), zap.Error(walkErr))
			return 0, 0, walkErr
		}
		return 0, 0, builderr.Infrastructure(walkErr, "measure source tree %s", root)
	}
	return total, files, nil
}

// scan is best-effort: unreadable entries are logged and skipped.
func (v *Validator) scan(ctx context.Context, root string) []Finding {
	var findings []Finding

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			v.logger.Warn("could not scan entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !isTextFile(d.Name()) {
			return nil
		}

		content, readErr := os.ReadFile(path) //nolint:gosec // path comes from walking the workspace
		if readErr != nil {
			v.logger.Warn("could not scan file", zap.String("file", relPath(root, path)), zap.Error(readErr))
			return nil
		}

		text := string(content)
		for _, pattern := range suspiciousPatterns {
			if strings.Contains(text, pattern) {
				f := Finding{Path: relPath(root, path), Pattern: pattern}
				v.logger.Warn("suspicious pattern found", zap.Stringer("finding", f))
				findings = append(findings, f)
			}
		}
		return nil
	})

	return findings
}

func isTextFile(name string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(name))]
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// String renders a finding for logs.
func (f Finding) String() string {
	return fmt.Sprintf("%s: %q", f.Path, f.Pattern)
}
