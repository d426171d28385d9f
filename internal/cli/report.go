package cli

import (
	"context"
	"fmt"
	"io"

	"atsquick/internal/common"
	"atsquick/internal/dashboard"
	"atsquick/internal/errors"
	"atsquick/internal/report"
	"atsquick/internal/store"

	"github.com/spf13/cobra"
)

var reportConfig common.CommandConfig

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the stored analysis as a PDF report or another format",
	Long: `Export the stored resume analysis. The default pdf format writes
resume-ats-report.pdf in the current directory unless --output is given.
The json, yaml, text and markdown formats print to stdout by default.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return common.ValidateOutputFormat(reportConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := getLoggerFromContext(cmd.Context())
		handler := common.NewOutputHandlerWithWriter(logger, cmd.OutOrStdout())

		return withStore(cmd, func(st store.Store) error {
			return exportReport(cmd.Context(), st, handler, reportConfig, cmd.ErrOrStderr())
		})
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportConfig.OutputFile, "output", "o", "", "Output file path (pdf default: "+report.DefaultFilename+")")
	reportCmd.Flags().StringVar(&reportConfig.OutputFormat, "format", common.FormatPDF, "Output format: pdf, json, yaml, text, or markdown")

	_ = reportCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return common.NewOutputHandler(nil).GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

// exportReport writes the stored analysis with handler. Without a stored
// analysis nothing is written.
func exportReport(ctx context.Context, st store.Store, handler *common.OutputHandler, cfg common.CommandConfig, status io.Writer) error {
	result, ok := st.Load(ctx)
	if !ok {
		return errors.NewValidationError(errors.ErrCodeFileNotFound, dashboard.MessageNoResult, nil)
	}

	written, err := handler.HandleOutput(dashboard.BuildView(result), cfg)
	if err != nil {
		return err
	}
	if written != "" {
		fmt.Fprintf(status, "Report saved to %s\n", written)
	}
	return nil
}
