package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		def := Default()
		assert.Equal(t, def.TemplateDirs, cfg.TemplateDirs)
		assert.Equal(t, def.TemplateExts, cfg.TemplateExts)
		assert.Equal(t, def.TemplatePartials, cfg.TemplatePartials)
		assert.Equal(t, def.StaticDirs, cfg.StaticDirs)
		assert.Equal(t, "/static/", cfg.StaticUrl)
		assert.Equal(t, Compact, cfg.OutputStyle)
		assert.Equal(t, "utf-8", cfg.FileCharset)
		assert.Empty(t, cfg.IncludeDirs)
		assert.True(t, cfg.TemplateSkipFuncCheck)
		assert.Empty(t, cfg.TemplateFuncs)
	})
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sassproc.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
template_dirs: [web/templates, web/emails]
template_exts: [.html, .tmpl]
static_dirs: [web/static]
include_dirs: [web/scss]
output_style: compressed
template_skip_func_check: false
template_funcs: [static, timehtml]
`), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"web/templates", "web/emails"}, cfg.TemplateDirs)
		assert.Equal(t, []string{".html", ".tmpl"}, cfg.TemplateExts)
		assert.Equal(t, []string{"web/static"}, cfg.StaticDirs)
		assert.Equal(t, []string{"web/scss"}, cfg.IncludeDirs)
		assert.Equal(t, Compressed, cfg.OutputStyle)
		assert.Equal(t, "utf-8", cfg.FileCharset)
		assert.False(t, cfg.TemplateSkipFuncCheck)
		assert.Equal(t, []string{"static", "timehtml"}, cfg.TemplateFuncs)
	})
	t.Run("environment overrides", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("SASSPROC_OUTPUT_STYLE", "nested")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Nested, cfg.OutputStyle)
	})
	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("bad output style", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sassproc.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output_style: fancy\n"), 0644))

		_, err := Load(path)
		assert.ErrorContains(t, err, `invalid output_style "fancy"`)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.TemplateExts = nil
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())
}
