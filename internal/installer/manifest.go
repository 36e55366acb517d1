package installer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/modcommit/internal/model"
)

// packageManifest is the subset of package.json read after installation.
type packageManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadInstalled reports the installed version of each requested module by
// reading node_modules/<name>/package.json under dir.
//
// Modules are returned in request order. A module without a manifest (a
// tarball or git spec, or an installer that is not npm) gets an empty
// Version. A manifest that exists but cannot be parsed is an error.
func ReadInstalled(dir string, modules []string) ([]model.InstalledModule, error) {
	installed := make([]model.InstalledModule, 0, len(modules))
	for _, spec := range modules {
		mod := model.InstalledModule{Name: spec}

		name, ok := packageName(spec)
		if !ok {
			installed = append(installed, mod)
			continue
		}

		path := filepath.Join(dir, "node_modules", filepath.FromSlash(name), "package.json")
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			installed = append(installed, mod)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest of %s: %w", spec, err)
		}

		// Published manifests are plain JSON, but hand-edited local
		// packages sometimes carry comments or trailing commas.
		var manifest packageManifest
		if err := json.Unmarshal(jsonc.ToJSON(data), &manifest); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
		mod.Version = manifest.Version
		installed = append(installed, mod)
	}
	return installed, nil
}

// packageName extracts the package directory name from an install spec
// such as "lodash@4", "@types/node@20" or "@scope/pkg". It reports false
// for specs that do not map to a node_modules entry by name (paths, URLs).
func packageName(spec string) (string, bool) {
	scope, rest := "", spec
	if strings.HasPrefix(rest, "@") {
		scope, rest = "@", rest[1:]
	}
	if i := strings.Index(rest, "@"); i >= 0 {
		rest = rest[:i]
	}
	name := scope + rest

	if name == "" || name == "@" || strings.ContainsAny(name, `:\`) || filepath.IsAbs(name) {
		return "", false
	}
	if strings.HasPrefix(name, ".") {
		return "", false
	}

	parts := strings.Split(name, "/")
	switch {
	case scope == "" && len(parts) != 1:
		return "", false
	case scope != "" && (len(parts) != 2 || parts[1] == ""):
		return "", false
	}
	for _, p := range parts {
		if p == "." || p == ".." {
			return "", false
		}
	}
	return name, true
}
