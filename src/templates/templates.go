package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template/parse"
	"unicode/utf8"

	"git.handmade.network/hmn/sassproc/src/config"
	"git.handmade.network/hmn/sassproc/src/oops"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	ErrUnreadable       = errors.New("template unreadable")
	ErrTemplateNotFound = errors.New("template does not exist")
	ErrSyntax           = errors.New("template syntax error")
	ErrDecode           = errors.New("template could not be decoded")
)

// Error describes why one template file could not be turned into a Template.
type Error struct {
	Kind error // one of the Err* values above
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Names the text/template package provides without a FuncMap. The parser only counts
// a function as defined when its map value is non-nil.
var builtinFuncNames = []string{
	"and", "call", "eq", "ge", "gt", "html", "index", "js", "le", "len", "lt", "ne",
	"not", "or", "print", "printf", "println", "slice", "urlquery",
}

type TemplatePathProvider interface {
	SearchRoots() ([]string, error)
}

// A Template is one parsed template file together with every tree it can reach by
// name: its own {{define}}s and the shared partials.
type Template struct {
	Name string // slash-separated, relative to the search root
	Path string
	Root *parse.Tree

	trees map[string]*parse.Tree
}

func (t *Template) Lookup(name string) *parse.Tree {
	return t.trees[name]
}

// A file is parsed once per name it is known by: pages by their path below the root,
// partials by their base name.
type fileKey struct {
	path string
	name string
}

type parsedFile struct {
	trees map[string]*parse.Tree
	err   error
}

type Parser struct {
	roots        []string
	partials     []string
	includePaths []string
	charset      encoding.Encoding // nil means plain UTF-8
	funcs        map[string]any    // nil when function names are not checked

	files map[fileKey]*parsedFile
}

func NewParser(cfg config.SassprocConfig, provider TemplatePathProvider) (*Parser, error) {
	roots, err := provider.SearchRoots()
	if err != nil {
		return nil, oops.New(err, "failed to list template search roots")
	}

	p := &Parser{
		partials:     cfg.TemplatePartials,
		includePaths: cfg.IncludeDirs,
		files:        make(map[fileKey]*parsedFile),
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, oops.New(err, "bad template search root %s", root)
		}
		p.roots = append(p.roots, abs)
	}

	if cfg.FileCharset != "" {
		enc, err := htmlindex.Get(cfg.FileCharset)
		if err != nil {
			return nil, oops.New(err, "unknown file charset %q", cfg.FileCharset)
		}
		if name, _ := htmlindex.Name(enc); name != "utf-8" {
			p.charset = enc
		}
	}

	if !cfg.TemplateSkipFuncCheck {
		p.funcs = make(map[string]any)
		for name, fn := range FuncMap(cfg) {
			p.funcs[name] = fn
		}
		for _, name := range builtinFuncNames {
			p.funcs[name] = true
		}
		for _, name := range cfg.TemplateFuncs {
			p.funcs[name] = true
		}
	}

	return p, nil
}

// Parse parses the template file at path along with the shared partials of every
// search root.
func (p *Parser) Parse(path string) (*Template, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, oops.New(&Error{Kind: ErrUnreadable, Path: path, Err: err}, "bad template path")
	}
	name := p.nameOf(abs)

	trees := make(map[string]*parse.Tree)
	for _, partial := range p.partialFiles() {
		if partial == abs {
			continue
		}
		partialTrees, err := p.parseFile(partial, filepath.Base(partial))
		if err != nil {
			return nil, err
		}
		merge(trees, partialTrees)
	}

	ownTrees, err := p.parseFile(abs, name)
	if err != nil {
		return nil, err
	}
	merge(trees, ownTrees)

	return &Template{
		Name:  name,
		Path:  abs,
		Root:  ownTrees[name],
		trees: trees,
	}, nil
}

/*
NodeList returns the child nodes of node. Control structures yield their pipeline and
both of their branches; actions and pipelines yield their parenthesized sub-pipelines. A {{template "name"}} call is resolved in origin's trees first and then as
a file path below the search roots; the Template the children belong to is returned
alongside them so nested calls resolve against the right set.
*/
func (p *Parser) NodeList(node parse.Node, origin *Template) ([]parse.Node, *Template, error) {
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return nil, origin, nil
		}
		return n.Nodes, origin, nil
	case *parse.ActionNode:
		return subPipes(n.Pipe), origin, nil
	case *parse.PipeNode:
		return subPipes(n), origin, nil
	case *parse.IfNode:
		return branchNodes(&n.BranchNode), origin, nil
	case *parse.RangeNode:
		return branchNodes(&n.BranchNode), origin, nil
	case *parse.WithNode:
		return branchNodes(&n.BranchNode), origin, nil
	case *parse.TemplateNode:
		if tree := origin.Lookup(n.Name); tree != nil {
			return treeNodes(tree), origin, nil
		}
		included, err := p.parseByName(n.Name)
		if err != nil {
			return nil, nil, err
		}
		return treeNodes(included.Root), included, nil
	}
	return nil, origin, nil
}

func (p *Parser) parseByName(name string) (*Template, error) {
	if filepath.IsAbs(name) || !fs.ValidPath(name) {
		return nil, oops.New(&Error{Kind: ErrTemplateNotFound, Path: name, Err: fs.ErrInvalid}, "cannot include template %q", name)
	}
	for _, root := range p.roots {
		candidate := filepath.Join(root, filepath.FromSlash(name))
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return p.Parse(candidate)
		}
	}
	return nil, oops.New(&Error{Kind: ErrTemplateNotFound, Path: name, Err: fs.ErrNotExist}, "no template named %q", name)
}

func (p *Parser) parseFile(abs, name string) (map[string]*parse.Tree, error) {
	key := fileKey{path: abs, name: name}
	if cached, ok := p.files[key]; ok {
		return cached.trees, cached.err
	}

	trees, err := p.readAndParse(abs, name)
	p.files[key] = &parsedFile{trees: trees, err: err}
	return trees, err
}

func (p *Parser) readAndParse(abs, name string) (map[string]*parse.Tree, error) {
	raw, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, oops.New(&Error{Kind: ErrTemplateNotFound, Path: abs, Err: err}, "failed to read template")
	} else if err != nil {
		return nil, oops.New(&Error{Kind: ErrUnreadable, Path: abs, Err: err}, "failed to read template")
	}

	text, err := p.decode(raw)
	if err != nil {
		return nil, oops.New(&Error{Kind: ErrDecode, Path: abs, Err: err}, "failed to decode template")
	}

	trees := make(map[string]*parse.Tree)
	t := parse.New(name)
	if p.funcs == nil {
		t.Mode |= parse.SkipFuncCheck
	}
	var funcs []map[string]any
	if p.funcs != nil {
		funcs = append(funcs, p.funcs)
	}
	if _, err := t.Parse(text, "", "", trees, funcs...); err != nil {
		return nil, oops.New(&Error{Kind: ErrSyntax, Path: abs, Err: err}, "failed to parse template")
	}

	return trees, nil
}

func (p *Parser) decode(raw []byte) (string, error) {
	if p.charset != nil {
		decoded, err := p.charset.NewDecoder().Bytes(raw)
		if err != nil {
			return "", err
		}
		raw = decoded
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("invalid byte sequence")
	}
	return string(raw), nil
}

func (p *Parser) nameOf(abs string) string {
	for _, root := range p.roots {
		rel, err := filepath.Rel(root, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(abs)
}

func (p *Parser) partialFiles() []string {
	var files []string
	for _, root := range p.roots {
		for _, glob := range p.partials {
			matches, err := filepath.Glob(filepath.Join(root, filepath.FromSlash(glob)))
			if err != nil {
				continue
			}
			for _, match := range matches {
				if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
					files = append(files, match)
				}
			}
		}
	}
	sort.Strings(files)
	return files
}

// merge adds src to dst the way html/template's AddParseTree does: later definitions
// win, except that an empty tree never replaces a non-empty one.
func merge(dst, src map[string]*parse.Tree) {
	for name, tree := range src {
		if existing, ok := dst[name]; ok && !parse.IsEmptyTree(existing.Root) && parse.IsEmptyTree(tree.Root) {
			continue
		}
		dst[name] = tree
	}
}

func branchNodes(b *parse.BranchNode) []parse.Node {
	var nodes []parse.Node
	if b.Pipe != nil {
		nodes = append(nodes, b.Pipe)
	}
	if b.List != nil {
		nodes = append(nodes, b.List.Nodes...)
	}
	if b.ElseList != nil {
		nodes = append(nodes, b.ElseList.Nodes...)
	}
	return nodes
}

func subPipes(pipe *parse.PipeNode) []parse.Node {
	if pipe == nil {
		return nil
	}
	var nodes []parse.Node
	for _, cmd := range pipe.Cmds {
		for _, arg := range cmd.Args {
			if sub, ok := arg.(*parse.PipeNode); ok {
				nodes = append(nodes, sub)
			}
		}
	}
	return nodes
}

func treeNodes(tree *parse.Tree) []parse.Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	return tree.Root.Nodes
}
