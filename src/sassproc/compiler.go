package sassproc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"git.handmade.network/hmn/sassproc/src/config"
	"git.handmade.network/hmn/sassproc/src/oops"
	libsass "github.com/wellington/go-libsass"
)

type Compiler interface {
	Compile(filename string, includePaths []string, style config.OutputStyle) ([]byte, error)
}

var libsassStyles = map[config.OutputStyle]int{
	config.Nested:     libsass.NESTED_STYLE,
	config.Expanded:   libsass.EXPANDED_STYLE,
	config.Compact:    libsass.COMPACT_STYLE,
	config.Compressed: libsass.COMPRESSED_STYLE,
}

// LibSassCompiler compiles with the libsass bundled into go-libsass.
type LibSassCompiler struct{}

func (LibSassCompiler) Compile(filename string, includePaths []string, style config.OutputStyle) ([]byte, error) {
	libsassStyle, ok := libsassStyles[style]
	if !ok {
		return nil, oops.New(nil, "unknown output style %q", style)
	}
	if _, err := os.Stat(filename); err != nil {
		return nil, oops.New(err, "failed to open SASS/SCSS file")
	}

	// Compiling by path lets libsass pick the syntax from the extension and resolve
	// imports relative to the file.
	syntax := libsass.SCSSSyntax
	if strings.ToLower(filepath.Ext(filename)) == ".sass" {
		syntax = libsass.SassSyntax
	}

	var out bytes.Buffer
	compiler, err := libsass.New(&out, nil,
		libsass.Path(filename),
		libsass.WithSyntax(syntax),
		libsass.IncludePaths(includePaths),
		libsass.OutputStyle(libsassStyle),
	)
	if err != nil {
		return nil, oops.New(err, "failed to create SCSS compiler")
	}
	if err := compiler.Run(); err != nil {
		return nil, oops.New(err, "failed to compile %s", filename)
	}

	return out.Bytes(), nil
}
