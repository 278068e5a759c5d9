package templates

import (
	"html/template"
	"path"
	"path/filepath"
	"strings"
	"text/template/parse"

	"git.handmade.network/hmn/sassproc/src/config"
	"github.com/Masterminds/sprig"
)

// SassSrcFunc is the template function that declares a stylesheet dependency:
//
//	<link rel="stylesheet" href="{{ sass_src "styles/main.scss" }}">
//	{{ with $href := sass_src "styles/print.scss" }}...{{ end }}
//	{{ printf "%s?v=2" (sass_src "styles/theme.scss") }}
const SassSrcFunc = "sass_src"

// A SassSrcNode is one sass_src call found in a parse tree.
type SassSrcNode struct {
	Node         parse.Node
	Path         string
	IsSass       bool // false for plain stylesheets served as they are
	IncludePaths []string
}

func IsSassPath(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".scss", ".sass":
		return true
	}
	return false
}

// CSSPath returns the path of the stylesheet compiled from a SASS/SCSS source: the
// same path with its extension replaced by .css.
func CSSPath(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ".css"
}

// SassSrc recognizes sass_src "path" and "path" | sass_src with a string literal path,
// in an action or in a pipeline NodeList handed out.
func (p *Parser) SassSrc(node parse.Node) (SassSrcNode, bool) {
	var pipe *parse.PipeNode
	switch n := node.(type) {
	case *parse.ActionNode:
		pipe = n.Pipe
	case *parse.PipeNode:
		pipe = n
	}
	if pipe == nil {
		return SassSrcNode{}, false
	}

	cmds := pipe.Cmds
	for i, cmd := range cmds {
		if len(cmd.Args) == 0 {
			continue
		}
		ident, ok := cmd.Args[0].(*parse.IdentifierNode)
		if !ok || ident.Ident != SassSrcFunc {
			continue
		}

		var arg parse.Node
		if len(cmd.Args) == 2 {
			arg = cmd.Args[1]
		} else if len(cmd.Args) == 1 && i > 0 && len(cmds[i-1].Args) == 1 {
			arg = cmds[i-1].Args[0]
		}
		str, ok := arg.(*parse.StringNode)
		if !ok || str.Text == "" {
			return SassSrcNode{}, false
		}

		return SassSrcNode{
			Node:         node,
			Path:         str.Text,
			IsSass:       IsSassPath(str.Text),
			IncludePaths: p.includePaths,
		}, true
	}

	return SassSrcNode{}, false
}

// FuncMap is what pages are rendered with: sprig plus sass_src, which points at the
// compiled stylesheet below the static URL.
func FuncMap(cfg config.SassprocConfig) template.FuncMap {
	staticUrl := cfg.StaticUrl
	if staticUrl == "" {
		staticUrl = "/"
	}

	funcs := sprig.FuncMap()
	funcs[SassSrcFunc] = func(src string) string {
		if IsSassPath(src) {
			src = CSSPath(src)
		}
		return strings.TrimSuffix(staticUrl, "/") + path.Clean("/"+filepath.ToSlash(src))
	}
	return funcs
}
