package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// __version__ = '1.2.3' or __version__ = "1.2.3"
var versionAssignRe = regexp.MustCompile(`(?m)^__version__\s*=\s*['"]([^'"]+)['"]`)

// PackageVersion statically reads the package version declared inside the
// repo. Python packages declare it as a __version__ assignment in
// __init__.py; a plain VERSION file is also honored.
func PackageVersion(pkgDir string) (string, error) {
	initPath := filepath.Join(pkgDir, "__init__.py")
	if data, err := os.ReadFile(initPath); err == nil {
		if m := versionAssignRe.FindSubmatch(data); m != nil {
			return string(m[1]), nil
		}
		return "", fmt.Errorf("no __version__ assignment in %s", initPath)
	}

	versionPath := filepath.Join(pkgDir, "VERSION")
	if data, err := os.ReadFile(versionPath); err == nil {
		if v := strings.TrimSpace(string(data)); v != "" {
			return v, nil
		}
	}

	return "", fmt.Errorf("no version file under %s", pkgDir)
}
