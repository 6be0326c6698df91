package sandbox

import (
	"path/filepath"
	"strings"
)

// Framework identifies how a source tree is built. The set is closed: every
// value has a row in the recipe table, and unknown hints resolve to
// FrameworkStatic, which uses the default row.
type Framework string

const (
	FrameworkReact   Framework = "react"
	FrameworkVue     Framework = "vue"
	FrameworkAngular Framework = "angular"
	FrameworkVite    Framework = "vite"
	FrameworkNext    Framework = "next"
	FrameworkPython  Framework = "python"
	FrameworkStatic  Framework = "static"
)

// Recipe is the pair of phase commands for a framework plus where its build
// output lands, relative to the source root.
type Recipe struct {
	Install   string
	Build     string
	OutputDir string
}

const (
	npmInstall = "npm ci --production=false"
	npmBuild   = "npm run build"
)

// recipes is the framework dispatch table.
// TODO: python builds run in the node base image and upload the whole root;
// resolve once per-framework images land in sandbox config.
var recipes = map[Framework]Recipe{
	FrameworkReact:   {Install: npmInstall, Build: npmBuild, OutputDir: "dist"},
	FrameworkVue:     {Install: npmInstall, Build: npmBuild, OutputDir: "dist"},
	FrameworkAngular: {Install: npmInstall, Build: npmBuild, OutputDir: "dist"},
	FrameworkVite:    {Install: npmInstall, Build: npmBuild, OutputDir: "dist"},
	FrameworkNext:    {Install: npmInstall, Build: npmBuild + " && mv .next/static .next/standalone/", OutputDir: ".next/standalone"},
	FrameworkPython:  {Install: "pip install -r requirements.txt", Build: "python setup.py build"},
	FrameworkStatic:  {Install: npmInstall, Build: npmBuild},
}

// ParseFramework resolves a hint case-insensitively. Unrecognized hints
// resolve to FrameworkStatic.
func ParseFramework(hint string) Framework {
	f := Framework(strings.ToLower(strings.TrimSpace(hint)))
	if _, ok := recipes[f]; ok {
		return f
	}
	return FrameworkStatic
}

// Recipe returns the commands for f.
func (f Framework) Recipe() Recipe {
	return recipes[ParseFramework(string(f))]
}

// OutputPath returns the directory holding build output for a tree rooted at root.
func (r Recipe) OutputPath(root string) string {
	if r.OutputDir == "" {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(r.OutputDir))
}

func (f Framework) String() string {
	return string(f)
}
