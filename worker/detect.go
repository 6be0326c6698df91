package worker

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/isdmx/buildbox/sandbox"
)

// frameworkMarkers maps package.json dependencies to frameworks, most
// specific first: a Next app also depends on react.
var frameworkMarkers = []struct {
	dependency string
	framework  sandbox.Framework
}{
	{"next", sandbox.FrameworkNext},
	{"@angular/core", sandbox.FrameworkAngular},
	{"vue", sandbox.FrameworkVue},
	{"vite", sandbox.FrameworkVite},
	{"react", sandbox.FrameworkReact},
}

type packageManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DetectFramework classifies the tree at root from its manifest files.
// Any node project without a recognized dependency is treated as react;
// requirements.txt means python; anything else is static.
func DetectFramework(root string) sandbox.Framework {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err == nil {
		var manifest packageManifest
		if json.Unmarshal(data, &manifest) != nil {
			return sandbox.FrameworkReact
		}
		for _, m := range frameworkMarkers {
			if _, ok := manifest.Dependencies[m.dependency]; ok {
				return m.framework
			}
			if _, ok := manifest.DevDependencies[m.dependency]; ok {
				return m.framework
			}
		}
		return sandbox.FrameworkReact
	}

	if _, err := os.Stat(filepath.Join(root, "requirements.txt")); err == nil {
		return sandbox.FrameworkPython
	}
	return sandbox.FrameworkStatic
}
