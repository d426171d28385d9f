package cli

import (
	"context"

	"atsquick/internal/config"
	"atsquick/internal/errors"
	"atsquick/internal/store"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "atsquick",
	Short: "AI-powered ATS resume analysis",
	Long: `ATSQuick scores a resume PDF the way an applicant tracking system would.
The resume is sent to a generative AI model, and the returned score, skills
breakdown, matching job roles and improvement suggestions are shown in a
terminal dashboard or exported as a PDF report.

Run "atsquick serve" to start the analysis server, then
"atsquick analyze resume.pdf" to analyze a resume.`,
	SilenceUsage: true,
}

func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context") // Should not happen if properly initialized
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context") // Should not happen if properly initialized
}

// withStore opens the configured result store for the duration of fn
func withStore(cmd *cobra.Command, fn func(st store.Store) error) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	st, err := store.New(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.LogError(err, "Failed to close result store")
		}
	}()

	return fn(st)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(contactCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
