package indexing

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kailas-cloud/semdesk/internal/domain"
)

// IndexDirName is the hidden directory holding generated markdown. It is never indexed.
const IndexDirName = ".semantic_index"

// DefaultExtensions are the source extensions indexed when none are configured.
var DefaultExtensions = []string{
	".txt", ".md", ".markdown", ".rtf", ".pdf", ".doc", ".docx",
	".csv", ".tsv", ".json", ".yaml", ".yml",
}

// NormalizeExtensions lowercases extensions and adds a missing leading dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if !slices.Contains(out, e) {
			out = append(out, e)
		}
	}
	return out
}

// ListFiles returns regular files under folder whose lowercase extension is allowed, sorted.
// An empty allowed list accepts every extension.
func ListFiles(folder string, allowed []string) ([]string, error) {
	base, err := resolveFolder(folder)
	if err != nil {
		return nil, err
	}
	allowed = NormalizeExtensions(allowed)

	var files []string
	err = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == IndexDirName && path != base {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(allowed) == 0 || slices.Contains(allowed, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", base, err)
	}

	slices.Sort(files)
	return files, nil
}

// resolveFolder makes folder absolute and checks that it is an existing directory.
func resolveFolder(folder string) (string, error) {
	base, err := filepath.Abs(folder)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", folder, err)
	}
	info, err := os.Stat(base)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("folder %s does not exist: %w", base, domain.ErrInvalidInput)
		}
		return "", fmt.Errorf("stat %s: %w", base, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path %s is not a directory: %w", base, domain.ErrInvalidInput)
	}
	return base, nil
}

// DefaultOutputRoot is the markdown root used for folder when none is configured.
func DefaultOutputRoot(base string) string {
	return filepath.Join(filepath.Dir(base), IndexDirName, "markdown")
}

// destination maps a source under base to <targetRoot>/<rel>.md, keeping the original extension.
func destination(targetRoot, base, source string) (string, error) {
	rel, err := filepath.Rel(base, source)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", source, err)
	}
	return filepath.Join(targetRoot, rel) + ".md", nil
}
