package sassproc

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.handmade.network/hmn/sassproc/src/config"
	"git.handmade.network/hmn/sassproc/src/oops"
	"git.handmade.network/hmn/sassproc/src/templates"
)

// An Executor compiles or deletes the stylesheets behind References. It remembers
// which sources it has handled so each one is processed once per run.
type Executor struct {
	Resolver    Resolver
	Compiler    Compiler
	OutputStyle config.OutputStyle
	Out         io.Writer

	compiled []string
	seen     map[string]bool
	failed   map[string]bool
}

// Compiled lists the absolute source paths compiled or deleted so far, in order.
func (e *Executor) Compiled() []string {
	return e.compiled
}

func (e *Executor) record(source string) {
	if e.seen == nil {
		e.seen = make(map[string]bool)
	}
	e.seen[source] = true
	e.compiled = append(e.compiled, source)
}

// Compile writes <source>.css next to the source ref resolves to. Unresolvable
// references and sources already handled this run are skipped without error.
func (e *Executor) Compile(ref Reference) error {
	source, ok := e.Resolver.FindFile(ref.Path)
	if !ok || e.seen[source] || e.failed[source] {
		return nil
	}

	includePaths := append(append([]string(nil), ref.IncludePaths...), filepath.Dir(source))
	css, err := e.Compiler.Compile(source, includePaths, e.OutputStyle)
	if err != nil {
		e.markFailed(source)
		return err
	}

	dest := templates.CSSPath(source)
	if err := os.WriteFile(dest, css, 0644); err != nil {
		e.markFailed(source)
		return oops.New(err, "failed to write CSS file %s", dest)
	}

	e.record(source)
	fmt.Fprintf(e.Out, "Compiled SASS/SCSS file: '%s'\n", ref.Path)
	return nil
}

// Delete removes the .css file generated from ref's source, if there is one.
func (e *Executor) Delete(ref Reference) error {
	source, ok := e.Resolver.FindFile(ref.Path)
	if !ok {
		return nil
	}

	dest := templates.CSSPath(source)
	info, err := os.Stat(dest)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if err := os.Remove(dest); err != nil {
		return oops.New(err, "failed to delete CSS file %s", dest)
	}

	e.record(source)
	fmt.Fprintf(e.Out, "Deleted '%s'\n", dest)
	return nil
}

func (e *Executor) markFailed(source string) {
	if e.failed == nil {
		e.failed = make(map[string]bool)
	}
	e.failed[source] = true
}
