package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type OutputStyle string

const (
	Nested     OutputStyle = "nested"
	Expanded   OutputStyle = "expanded"
	Compact    OutputStyle = "compact"
	Compressed OutputStyle = "compressed"
)

var OutputStyles = []OutputStyle{Nested, Expanded, Compact, Compressed}

type SassprocConfig struct {
	LogLevel string `mapstructure:"log_level"`

	// Roots searched for page templates and for files named by {{template "..."}}.
	TemplateDirs []string `mapstructure:"template_dirs"`
	TemplateExts []string `mapstructure:"template_exts"`
	// Globs, relative to each template dir, parsed alongside every page.
	TemplatePartials []string `mapstructure:"template_partials"`
	// Function names are only checked when this is false. TemplateFuncs lists the
	// names the host application registers on top of the builtins, sprig and sass_src.
	TemplateSkipFuncCheck bool     `mapstructure:"template_skip_func_check"`
	TemplateFuncs         []string `mapstructure:"template_funcs"`
	FileCharset           string   `mapstructure:"file_charset"`

	StaticDirs  []string    `mapstructure:"static_dirs"`
	StaticUrl   string      `mapstructure:"static_url"`
	IncludeDirs []string    `mapstructure:"include_dirs"`
	OutputStyle OutputStyle `mapstructure:"output_style"`
}

func (c SassprocConfig) Validate() error {
	if len(c.TemplateExts) == 0 {
		return fmt.Errorf("template_exts must list at least one extension")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	for _, style := range OutputStyles {
		if c.OutputStyle == style {
			return nil
		}
	}

	names := make([]string, len(OutputStyles))
	for i, style := range OutputStyles {
		names[i] = string(style)
	}
	return fmt.Errorf("invalid output_style %q (expected one of %s)", c.OutputStyle, strings.Join(names, ", "))
}

// DirsProvider hands out the configured template dirs as template search roots.
type DirsProvider []string

func (p DirsProvider) SearchRoots() ([]string, error) {
	return p, nil
}
