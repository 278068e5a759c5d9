package sassproc

import (
	"iter"
	"text/template/parse"

	"git.handmade.network/hmn/sassproc/src/templates"
)

// A Reference is one sass_src tag that points at a SASS/SCSS source.
type Reference struct {
	Path         string
	IncludePaths []string
	IsSass       bool
}

// NodeLister is the part of the template parser the walker needs. *templates.Parser
// implements it.
type NodeLister interface {
	NodeList(node parse.Node, origin *templates.Template) ([]parse.Node, *templates.Template, error)
	SassSrc(node parse.Node) (templates.SassSrcNode, bool)
}

/*
Walk yields every SASS/SCSS reference reachable from tmpl, depth first, following
{{template}} calls into other trees and files through lister. Plain stylesheet
references are skipped. The sequence can be ranged over any number of times; each
pass walks the tree again.

An error from lister is yielded once and ends the sequence.
*/
func Walk(lister NodeLister, tmpl *templates.Template) iter.Seq2[Reference, error] {
	return func(yield func(Reference, error) bool) {
		w := walker{
			lister: lister,
			yield:  yield,
			active: make(map[treeKey]bool),
		}
		w.walk(tmpl.Root.Root, tmpl)
	}
}

type treeKey struct {
	file string
	name string
}

type walker struct {
	lister NodeLister
	yield  func(Reference, error) bool

	// {{template}} calls entered on the current path, so recursive templates end
	active  map[treeKey]bool
	stopped bool
}

func (w *walker) walk(node parse.Node, origin *templates.Template) {
	children, childOrigin, err := w.lister.NodeList(node, origin)
	if err != nil {
		w.yield(Reference{}, err)
		w.stopped = true
		return
	}

	for _, child := range children {
		if w.stopped {
			return
		}

		if src, ok := w.lister.SassSrc(child); ok {
			if src.IsSass && !w.yield(Reference{Path: src.Path, IncludePaths: src.IncludePaths, IsSass: true}, nil) {
				w.stopped = true
			}
			continue
		}

		if call, ok := child.(*parse.TemplateNode); ok {
			key := treeKey{file: childOrigin.Path, name: call.Name}
			if w.active[key] {
				continue
			}
			w.active[key] = true
			w.walk(child, childOrigin)
			delete(w.active, key)
			continue
		}

		w.walk(child, childOrigin)
	}
}
