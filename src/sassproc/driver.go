package sassproc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"git.handmade.network/hmn/sassproc/src/config"
	"git.handmade.network/hmn/sassproc/src/logging"
	"git.handmade.network/hmn/sassproc/src/perf"
	"git.handmade.network/hmn/sassproc/src/templates"
	"git.handmade.network/hmn/sassproc/src/utils"
	"github.com/rs/zerolog"
)

type Options struct {
	DeleteFiles bool // remove previously generated .css files instead of compiling
	ShowErrors  bool // print a line for every template that could not be processed
}

// A Driver runs one compilescss pass over every template it can find.
type Driver struct {
	Config   config.SassprocConfig
	Provider templates.TemplatePathProvider
	Resolver Resolver
	Compiler Compiler
	Out      io.Writer
}

func NewDriver(cfg config.SassprocConfig, out io.Writer) *Driver {
	return &Driver{
		Config:   cfg,
		Provider: config.DirsProvider(cfg.TemplateDirs),
		Resolver: DirResolver{Dirs: cfg.StaticDirs},
		Compiler: LibSassCompiler{},
		Out:      out,
	}
}

/*
Run finds every template, collects its SASS/SCSS references and compiles (or
deletes) them, then prints a summary. It returns the number of distinct sources
handled.

Only configuration problems are returned as errors. Templates that fail to parse or
walk are skipped, and reported only when opts.ShowErrors is set.
*/
func (d *Driver) Run(ctx context.Context, opts Options) (int, error) {
	logger := logging.ExtractLogger(ctx)

	mode := "compile"
	if opts.DeleteFiles {
		mode = "delete"
	}
	runPerf := perf.MakeNewRunPerf("compilescss " + mode)
	defer func() {
		runPerf.EndRun()
		runPerf.Log(logger)
	}()

	runPerf.StartBlock("locate", "find templates")
	paths, err := FindTemplates(d.Provider, utils.SliceOrDefault(d.Config.TemplateExts, config.Default().TemplateExts))
	runPerf.EndBlock()
	if err != nil {
		return 0, err
	}
	logger.Debug().Int("templates", len(paths)).Msg("Found templates")

	parser, err := templates.NewParser(d.Config, d.Provider)
	if err != nil {
		return 0, err
	}

	executor := &Executor{
		Resolver:    d.Resolver,
		Compiler:    d.Compiler,
		OutputStyle: utils.OrDefault(d.Config.OutputStyle, config.Compact),
		Out:         d.Out,
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return len(executor.Compiled()), err
		}

		runPerf.StartBlock("template", path)
		d.processTemplate(logger, parser, executor, path, opts)
		runPerf.EndBlock()
	}

	runPerf.Checkpoint("report", "summary")
	count := len(executor.Compiled())
	if opts.DeleteFiles {
		fmt.Fprintf(d.Out, "Successfully deleted %d previously generated `*.css` files.\n", count)
	} else {
		fmt.Fprintf(d.Out, "Successfully compiled %d referred SASS/SCSS files.\n", count)
	}
	return count, nil
}

func (d *Driver) processTemplate(logger *zerolog.Logger, parser *templates.Parser, executor *Executor, path string, opts Options) {
	tmpl, err := parser.Parse(path)
	if err != nil {
		logger.Debug().Err(err).Str("template", path).Msg("Skipping template")
		if opts.ShowErrors {
			fmt.Fprintln(d.Out, parseErrorLine(path, err))
		}
		return
	}

	refs, err := collectReferences(parser, tmpl)
	if err != nil {
		logger.Debug().Err(err).Str("template", path).Msg("Skipping template")
		if opts.ShowErrors {
			fmt.Fprintf(d.Out, "Error parsing template %s: %v\n", path, err)
		}
		return
	}

	for _, ref := range refs {
		if opts.DeleteFiles {
			err = executor.Delete(ref)
		} else {
			err = executor.Compile(ref)
		}
		if err != nil {
			logger.Error().Err(err).Str("template", path).Str("source", ref.Path).Msg("Failed to process stylesheet")
			if opts.DeleteFiles {
				fmt.Fprintf(d.Out, "Failed to delete CSS for '%s': %v\n", ref.Path, err)
			} else {
				fmt.Fprintf(d.Out, "Failed to compile SASS/SCSS file '%s': %v\n", ref.Path, err)
			}
		}
	}
}

// collectReferences walks the whole template before anything is compiled, so a
// template that fails halfway contributes nothing.
func collectReferences(lister NodeLister, tmpl *templates.Template) (refs []Reference, err error) {
	defer func() {
		if err != nil {
			refs = nil
		}
	}()
	defer utils.RecoverPanicAsError(&err)

	for ref, walkErr := range Walk(lister, tmpl) {
		if walkErr != nil {
			return nil, walkErr
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func parseErrorLine(path string, err error) string {
	var cause error = err
	var tplErr *templates.Error
	if errors.As(err, &tplErr) {
		cause = tplErr.Err
	}

	switch {
	case errors.Is(err, templates.ErrUnreadable):
		return fmt.Sprintf("Unreadable template at: %s", path)
	case errors.Is(err, templates.ErrSyntax):
		return fmt.Sprintf("Invalid template %s: %v", path, cause)
	case errors.Is(err, templates.ErrTemplateNotFound):
		return fmt.Sprintf("Non-existent template at: %s", path)
	case errors.Is(err, templates.ErrDecode):
		return fmt.Sprintf("Undecodable template %s: %v", path, cause)
	}
	return fmt.Sprintf("Error parsing template %s: %v", path, err)
}
