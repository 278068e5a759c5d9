package sassproc

import (
	"io/fs"
	"os"
	"path/filepath"
)

// A Resolver maps the path written in a template to a file on disk.
type Resolver interface {
	FindFile(path string) (string, bool)
}

// DirResolver looks a path up in each of its directories in order, the first hit
// winning. Paths that would escape a directory never resolve.
type DirResolver struct {
	Dirs []string
}

func (r DirResolver) FindFile(path string) (string, bool) {
	slashed := filepath.ToSlash(path)
	if filepath.IsAbs(path) || !fs.ValidPath(slashed) {
		return "", false
	}

	for _, dir := range r.Dirs {
		candidate, err := filepath.Abs(filepath.Join(dir, filepath.FromSlash(slashed)))
		if err != nil {
			continue
		}
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
