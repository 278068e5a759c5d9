package sassproc

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.handmade.network/hmn/sassproc/src/oops"
	"git.handmade.network/hmn/sassproc/src/templates"
)

var (
	ErrNoTemplateLoaders = errors.New("no template directories are configured")
	ErrNoTemplatePaths   = errors.New("none of the configured template directories exist")
	ErrNoTemplates       = errors.New("no templates found in the configured template directories")
)

// FindTemplates returns the absolute paths of all non-hidden files below the
// provider's search roots whose names end in one of exts.
func FindTemplates(provider templates.TemplatePathProvider, exts []string) ([]string, error) {
	roots, err := provider.SearchRoots()
	if err != nil {
		return nil, oops.New(err, "failed to list template search roots")
	}
	if len(roots) == 0 {
		return nil, oops.New(ErrNoTemplateLoaders, "set template_dirs in your config")
	}

	var dirs []string
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			dirs = append(dirs, abs)
		}
	}
	if len(dirs) == 0 {
		return nil, oops.New(ErrNoTemplatePaths, "looked in %s", strings.Join(roots, ", "))
	}

	found := make(map[string]struct{})
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subdirectories are skipped, not fatal.
				return nil
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			if matchesExt(d.Name(), exts) {
				found[path] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, oops.New(err, "failed to walk template directory %s", dir)
		}
	}
	if len(found) == 0 {
		return nil, oops.New(ErrNoTemplates, "make sure template_dirs and template_exts are correct")
	}

	result := make([]string, 0, len(found))
	for path := range found {
		result = append(result, path)
	}
	sort.Strings(result)
	return result, nil
}

func matchesExt(name string, exts []string) bool {
	for _, ext := range exts {
		if ok, _ := filepath.Match("*"+ext, name); ok {
			return true
		}
	}
	return false
}
