package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	color "git.handmade.network/hmn/sassproc/src/ansicolor"
	"git.handmade.network/hmn/sassproc/src/cli"
	"git.handmade.network/hmn/sassproc/src/config"
	"git.handmade.network/hmn/sassproc/src/logging"
	"git.handmade.network/hmn/sassproc/src/sassproc"
	"git.handmade.network/hmn/sassproc/src/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	var opts sassproc.Options

	compileCommand := &cobra.Command{
		Use:   "compilescss",
		Short: "Compile SASS/SCSS into CSS outside of the request/response cycle",
		Run: func(cmd *cobra.Command, args []string) {
			defer logging.LogPanics(nil)

			cfg, err := cli.LoadConfig()
			if err != nil {
				fmt.Fprintln(os.Stderr, color.Bold+color.Red+"Failed to load config."+color.Reset)
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			err = compileScss(ctx, cfg, cmd.OutOrStdout(), opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, color.Bold+color.Red+"Failed to compile SCSS."+color.Reset)
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
		},
	}
	compileCommand.Flags().BoolVar(&opts.DeleteFiles, "delete-files", false, "Delete generated `*.css` files instead of creating them.")
	compileCommand.Flags().BoolVar(&opts.ShowErrors, "show-errors", false, "Display error messages.")

	cli.RootCommand.AddCommand(compileCommand)
}

func compileScss(ctx context.Context, cfg config.SassprocConfig, out io.Writer, opts sassproc.Options) error {
	logger := logging.With().Str("run", utils.Must1(uuid.NewRandom()).String()).Logger()
	ctx = logging.AttachLoggerToContext(&logger, ctx)

	logger.Debug().
		Bool("deleteFiles", opts.DeleteFiles).
		Bool("showErrors", opts.ShowErrors).
		Msg("Starting compilescss")
	_, err := sassproc.NewDriver(cfg, out).Run(ctx, opts)
	return err
}
