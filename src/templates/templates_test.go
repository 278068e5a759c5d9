package templates

import (
	"errors"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template/parse"

	"git.handmade.network/hmn/sassproc/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, contents := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
}

func newTestParser(t *testing.T, root string, edit func(cfg *config.SassprocConfig)) *Parser {
	t.Helper()
	cfg := config.Default()
	cfg.TemplateDirs = []string{root}
	cfg.IncludeDirs = []string{"/srv/scss"}
	if edit != nil {
		edit(&cfg)
	}
	p, err := NewParser(cfg, config.DirsProvider(cfg.TemplateDirs))
	require.NoError(t, err)
	return p
}

// collect gathers every sass_src node reachable from tmpl, following NodeList.
func collect(t *testing.T, p *Parser, tmpl *Template) []SassSrcNode {
	t.Helper()
	var found []SassSrcNode
	var visit func(node parse.Node, origin *Template)
	visit = func(node parse.Node, origin *Template) {
		if src, ok := p.SassSrc(node); ok {
			found = append(found, src)
			return
		}
		children, childOrigin, err := p.NodeList(node, origin)
		require.NoError(t, err)
		for _, child := range children {
			visit(child, childOrigin)
		}
	}
	visit(tmpl.Root.Root, tmpl)
	return found
}

func paths(nodes []SassSrcNode) []string {
	var result []string
	for _, n := range nodes {
		result = append(result, n.Path)
	}
	return result
}

func TestParse(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"page.html": `<head>
<link rel="stylesheet" href="{{ sass_src "styles/main.scss" }}">
<link rel="stylesheet" href="{{ "styles/theme.sass" | sass_src }}">
<link rel="stylesheet" href="{{ sass_src "vendor/reset.css" }}">
</head>
{{ if .LoggedIn }}{{ sass_src "styles/user.scss" }}{{ else }}{{ sass_src "styles/guest.scss" }}{{ end }}
{{ range .Items }}{{ upper . }}{{ end }}`,
	})

	p := newTestParser(t, root, nil)
	tmpl, err := p.Parse(filepath.Join(root, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, "page.html", tmpl.Name)
	assert.Equal(t, filepath.Join(root, "page.html"), tmpl.Path)

	found := collect(t, p, tmpl)
	assert.Equal(t, []string{
		"styles/main.scss",
		"styles/theme.sass",
		"vendor/reset.css",
		"styles/user.scss",
		"styles/guest.scss",
	}, paths(found))
	assert.True(t, found[0].IsSass)
	assert.True(t, found[1].IsSass)
	assert.False(t, found[2].IsSass)
	assert.Equal(t, []string{"/srv/scss"}, found[0].IncludePaths)
}

func TestSassSrcInPipelines(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"page.html": `{{ with $href := sass_src "styles/a.scss" }}<link href="{{ $href }}">{{ end }}
{{ (sass_src "styles/b.scss") }}
{{ if ne (sass_src "styles/c.scss") "" }}{{ printf "%s" (upper (sass_src "styles/d.scss")) }}{{ end }}
{{ range $i, $item := .Items }}{{ $item }}{{ end }}`,
	})

	p := newTestParser(t, root, nil)
	tmpl, err := p.Parse(filepath.Join(root, "page.html"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"styles/a.scss",
		"styles/b.scss",
		"styles/c.scss",
		"styles/d.scss",
	}, paths(collect(t, p, tmpl)))
}

func TestParseErrors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"broken.html":  `{{ if .Foo }}never closed`,
		"unknown.html": `{{ frobnicate "x" }}`,
		"latin1.html":  "caf\xe9 {{ sass_src \"cafe.scss\" }}",
	})

	t.Run("syntax", func(t *testing.T) {
		_, err := newTestParser(t, root, nil).Parse(filepath.Join(root, "broken.html"))
		assert.True(t, errors.Is(err, ErrSyntax))

		var tplErr *Error
		require.True(t, errors.As(err, &tplErr))
		assert.Equal(t, filepath.Join(root, "broken.html"), tplErr.Path)
	})
	t.Run("unknown function", func(t *testing.T) {
		p := newTestParser(t, root, func(cfg *config.SassprocConfig) {
			cfg.TemplateSkipFuncCheck = false
		})
		_, err := p.Parse(filepath.Join(root, "unknown.html"))
		assert.True(t, errors.Is(err, ErrSyntax))
	})
	t.Run("host function", func(t *testing.T) {
		p := newTestParser(t, root, func(cfg *config.SassprocConfig) {
			cfg.TemplateSkipFuncCheck = false
			cfg.TemplateFuncs = []string{"frobnicate"}
		})
		_, err := p.Parse(filepath.Join(root, "unknown.html"))
		assert.NoError(t, err)
	})
	t.Run("unknown function without checks", func(t *testing.T) {
		_, err := newTestParser(t, root, nil).Parse(filepath.Join(root, "unknown.html"))
		assert.NoError(t, err)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := newTestParser(t, root, nil).Parse(filepath.Join(root, "nope.html"))
		assert.True(t, errors.Is(err, ErrTemplateNotFound))
	})
	t.Run("not utf-8", func(t *testing.T) {
		_, err := newTestParser(t, root, nil).Parse(filepath.Join(root, "latin1.html"))
		assert.True(t, errors.Is(err, ErrDecode))
	})
	t.Run("configured charset", func(t *testing.T) {
		p := newTestParser(t, root, func(cfg *config.SassprocConfig) {
			cfg.FileCharset = "windows-1252"
		})
		tmpl, err := p.Parse(filepath.Join(root, "latin1.html"))
		require.NoError(t, err)
		assert.Equal(t, []string{"cafe.scss"}, paths(collect(t, p, tmpl)))
	})
	t.Run("unknown charset", func(t *testing.T) {
		cfg := config.Default()
		cfg.FileCharset = "klingon"
		_, err := NewParser(cfg, config.DirsProvider{root})
		assert.Error(t, err)
	})
}

func TestNodeList(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"layouts/base.html": `<html><head>{{ sass_src "styles/base.scss" }}{{ block "extrahead" . }}{{ end }}</head>
<body>{{ template "content" . }}</body></html>`,
		"include/footer.html": `{{ define "footer" }}{{ sass_src "styles/footer.scss" }}{{ end }}`,
		"emails/shared.html":  `{{ sass_src "styles/email.scss" }}`,
		"page.html": `{{ template "base.html" . }}
{{ define "extrahead" }}{{ sass_src "styles/page.scss" }}{{ end }}
{{ define "content" }}{{ template "footer" . }}{{ template "emails/shared.html" . }}{{ end }}`,
		"dangling.html": `{{ template "nowhere.html" . }}`,
	})
	p := newTestParser(t, root, nil)

	t.Run("partials and includes", func(t *testing.T) {
		tmpl, err := p.Parse(filepath.Join(root, "page.html"))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"styles/base.scss",
			"styles/page.scss",
			"styles/footer.scss",
			"styles/email.scss",
		}, paths(collect(t, p, tmpl)))
	})
	t.Run("template that does not exist", func(t *testing.T) {
		tmpl, err := p.Parse(filepath.Join(root, "dangling.html"))
		require.NoError(t, err)

		_, _, err = p.NodeList(tmpl.Root.Root.Nodes[0], tmpl)
		assert.True(t, errors.Is(err, ErrTemplateNotFound))
	})
	t.Run("included file becomes the origin", func(t *testing.T) {
		tmpl, err := p.Parse(filepath.Join(root, "dangling.html"))
		require.NoError(t, err)

		node := &parse.TemplateNode{NodeType: parse.NodeTemplate, Name: "emails/shared.html"}
		children, origin, err := p.NodeList(node, tmpl)
		require.NoError(t, err)
		assert.Len(t, children, 1)
		assert.Equal(t, "emails/shared.html", origin.Name)
	})
}

func TestFuncMap(t *testing.T) {
	cfg := config.Default()
	cfg.StaticUrl = "https://cdn.example.com/static/"

	tmpl := template.Must(template.New("page").Funcs(FuncMap(cfg)).Parse(
		`{{ sass_src "styles/main.scss" }} {{ sass_src "vendor/reset.css" }} {{ "x" | upper }}`,
	))
	var b strings.Builder
	require.NoError(t, tmpl.Execute(&b, nil))
	assert.Equal(t, "https://cdn.example.com/static/styles/main.css https://cdn.example.com/static/vendor/reset.css X", b.String())
}

func TestCSSPath(t *testing.T) {
	assert.Equal(t, "styles/main.css", CSSPath("styles/main.scss"))
	assert.Equal(t, "/abs/theme.css", CSSPath("/abs/theme.sass"))
	assert.True(t, IsSassPath("a/B.SCSS"))
	assert.False(t, IsSassPath("a/b.css"))
}
