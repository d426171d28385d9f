package cli

import (
	"context"
	"fmt"
	"io"

	"atsquick/internal/ai"
	"atsquick/internal/client"
	"atsquick/internal/common"
	"atsquick/internal/config"
	"atsquick/internal/dashboard"
	"atsquick/internal/errors"
	"atsquick/internal/store"
	"atsquick/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume.pdf]",
	Short: "Analyze a resume PDF and show the dashboard",
	Long: `Upload a resume PDF to the ATSQuick server for analysis. The result replaces
any previously stored analysis and is shown as a dashboard.

The analysis includes:
- An overall ATS score
- A skills breakdown
- Best matching job roles
- Improvement suggestions

With --local the AI model is called directly instead of going through the server.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var analyzeOptions struct {
	local      bool
	noProgress bool
	width      int
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeOptions.local, "local", false, "Call the AI model directly instead of the server")
	analyzeCmd.Flags().BoolVar(&analyzeOptions.noProgress, "no-progress", false, "Disable the progress spinner")
	analyzeCmd.Flags().IntVar(&analyzeOptions.width, "width", 80, "Dashboard width in columns")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	analyze, cleanup, err := newAnalyzeFunc(ctx, cfg, logger, analyzeOptions.local)
	if err != nil {
		return err
	}
	defer cleanup()

	progress := common.ProgressFunc(dashboard.RunWithSpinner)
	if analyzeOptions.noProgress {
		progress = common.NoProgress
	}

	return withStore(cmd, func(st store.Store) error {
		result, err := common.RunAnalysis(ctx, common.AnalysisRun{
			Logger:      logger,
			MaxFileSize: cfg.App.MaxFileSize,
			Analyze:     analyze,
			Progress:    progress,
			Store:       st,
		}, args[0])
		if err != nil {
			reportAnalysisFailure(cmd.ErrOrStderr(), err)
			return err
		}

		logger.Info("Resume analysis completed successfully")
		fmt.Fprintln(cmd.OutOrStdout(), dashboard.Render(dashboard.BuildView(result), analyzeOptions.width))
		return nil
	})
}

// newAnalyzeFunc returns the server client or, when local is set, the direct
// model call. cleanup releases whatever the analyzer holds.
func newAnalyzeFunc(ctx context.Context, cfg *config.Config, logger *errors.Logger, local bool) (common.AnalyzeFunc, func(), error) {
	if !local {
		c := client.New(cfg.Client)
		return c.Submit, func() {}, nil
	}

	service, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create AI service: %w", err)
	}

	analyze := func(ctx context.Context, _ string, data []byte) (types.AnalysisResult, error) {
		result, usage, err := service.Analyze(ctx, data)
		if usage != nil {
			logger.Info("AI token usage",
				"input_tokens", usage.InputTokens,
				"output_tokens", usage.OutputTokens,
				"total_tokens", usage.TotalTokens)
		}
		return result, err
	}
	cleanup := func() {
		if err := service.Close(); err != nil {
			logger.LogError(err, "Failed to close AI service")
		}
	}
	return analyze, cleanup, nil
}

// reportAnalysisFailure prints the user-facing message for err. Problems with
// the selected file are explained; every other failure gets the generic message.
func reportAnalysisFailure(w io.Writer, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.ErrCodeMissingFile, errors.ErrCodeInvalidFormat,
			errors.ErrCodeFileNotFound, errors.ErrCodeFileTooLarge, errors.ErrCodeFileNotReadable:
			fmt.Fprintln(w, appErr.Message)
			return
		}
	}
	fmt.Fprintln(w, client.FailureMessage)
}
