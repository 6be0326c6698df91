package sandbox

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFramework(t *testing.T) {
	tests := []struct {
		hint string
		want Framework
	}{
		{"react", FrameworkReact},
		{"React", FrameworkReact},
		{"VUE", FrameworkVue},
		{"angular", FrameworkAngular},
		{"vite", FrameworkVite},
		{" next ", FrameworkNext},
		{"python", FrameworkPython},
		{"static", FrameworkStatic},
		{"svelte", FrameworkStatic},
		{"", FrameworkStatic},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFramework(tt.hint))
		})
	}
}

func TestRecipes(t *testing.T) {
	root := filepath.FromSlash("/tmp/build-1")

	tests := []struct {
		framework Framework
		install   string
		build     string
		output    string
	}{
		{FrameworkReact, "npm ci --production=false", "npm run build", filepath.Join(root, "dist")},
		{FrameworkVue, "npm ci --production=false", "npm run build", filepath.Join(root, "dist")},
		{FrameworkAngular, "npm ci --production=false", "npm run build", filepath.Join(root, "dist")},
		{FrameworkVite, "npm ci --production=false", "npm run build", filepath.Join(root, "dist")},
		{FrameworkNext, "npm ci --production=false", "npm run build && mv .next/static .next/standalone/", filepath.Join(root, ".next", "standalone")},
		{FrameworkPython, "pip install -r requirements.txt", "python setup.py build", root},
		{FrameworkStatic, "npm ci --production=false", "npm run build", root},
		{Framework("unknown"), "npm ci --production=false", "npm run build", root},
	}

	for _, tt := range tests {
		t.Run(tt.framework.String(), func(t *testing.T) {
			r := tt.framework.Recipe()
			assert.Equal(t, tt.install, r.Install)
			assert.Equal(t, tt.build, r.Build)
			assert.Equal(t, tt.output, r.OutputPath(root))
		})
	}
}

func TestRecipeTableCoversEveryFramework(t *testing.T) {
	for _, f := range []Framework{
		FrameworkReact, FrameworkVue, FrameworkAngular, FrameworkVite,
		FrameworkNext, FrameworkPython, FrameworkStatic,
	} {
		_, ok := recipes[f]
		assert.True(t, ok, "missing recipe for %s", f)
	}
}
