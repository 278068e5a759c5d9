package config

import (
	"errors"

	"git.handmade.network/hmn/sassproc/src/oops"
	"github.com/spf13/viper"
)

const EnvPrefix = "SASSPROC"

func Default() SassprocConfig {
	return SassprocConfig{
		LogLevel:         "info",
		TemplateDirs:     []string{"templates"},
		TemplateExts:     []string{".html"},
		TemplatePartials: []string{"layouts/*", "include/*"},
		FileCharset:      "utf-8",

		TemplateSkipFuncCheck: true,
		StaticDirs:       []string{"static"},
		StaticUrl:        "/static/",
		OutputStyle:      Compact,
	}
}

/*
Load reads the configuration from the given file, or from sassproc.{yaml,toml,json} in the
working directory when path is empty. A missing default file is fine; a missing explicit
file is not. SASSPROC_* environment variables override both.
*/
func Load(path string) (SassprocConfig, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("template_dirs", def.TemplateDirs)
	v.SetDefault("template_exts", def.TemplateExts)
	v.SetDefault("template_partials", def.TemplatePartials)
	v.SetDefault("template_skip_func_check", def.TemplateSkipFuncCheck)
	v.SetDefault("template_funcs", []string{})
	v.SetDefault("file_charset", def.FileCharset)
	v.SetDefault("static_dirs", def.StaticDirs)
	v.SetDefault("static_url", def.StaticUrl)
	v.SetDefault("include_dirs", []string{})
	v.SetDefault("output_style", string(def.OutputStyle))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sassproc")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return SassprocConfig{}, oops.New(err, "failed to read config file")
		}
	}

	var cfg SassprocConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return SassprocConfig{}, oops.New(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return SassprocConfig{}, oops.New(err, "invalid config")
	}

	return cfg, nil
}
