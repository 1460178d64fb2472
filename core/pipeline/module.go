package pipeline

import (
	"path"
	"strings"
)

// ModulePath converts a repository relative file path into a dotted module
// path. "src/app/main.py" becomes "src.app.main", "pkg/__init__.py"
// becomes "pkg".
func ModulePath(filePath string) string {
	cleaned := path.Clean(strings.ReplaceAll(filePath, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")
	cleaned = strings.TrimSuffix(cleaned, ".py")
	cleaned = strings.TrimSuffix(cleaned, "/__init__")
	if cleaned == "__init__" {
		return ""
	}
	return strings.ReplaceAll(cleaned, "/", ".")
}

// PackagePrefixes returns all ancestor package paths of a dotted module
// path, shortest first. "a.b.c" yields ["a", "a.b"].
func PackagePrefixes(modulePath string) []string {
	if modulePath == "" {
		return nil
	}

	parts := strings.Split(modulePath, ".")
	var prefixes []string
	for i := 1; i < len(parts); i++ {
		prefixes = append(prefixes, strings.Join(parts[:i], "."))
	}
	return prefixes
}

// IsTestFile reports whether a file path matches any of the configured
// test path substrings and should be skipped during indexing.
func IsTestFile(filePath string, skipSubstrings []string) bool {
	for _, substring := range skipSubstrings {
		if strings.Contains(filePath, substring) {
			return true
		}
	}
	return false
}
