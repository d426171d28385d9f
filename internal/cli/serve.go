package cli

import (
	"fmt"

	"atsquick/internal/ai"
	"atsquick/internal/contact"
	"atsquick/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resume analysis HTTP server",
	Long: `Start an HTTP server that analyzes uploaded resumes and relays contact messages.

Available endpoints:
- POST /api/analyze: Analyze a resume PDF (multipart field "file")
- POST /api/contact: Send a contact message (JSON, reCAPTCHA verified)
- GET /health: Health check including AI model availability
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			value, _ := cmd.Flags().GetString(name)
			*target = value
		}
	}

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	analyzer, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	if !analyzer.Configured() {
		logger.Warn("AI API key is not configured; analysis requests will fail with a configuration error")
	}

	contactService := contact.NewService(cfg.Contact, logger)

	srv := server.NewServer(cfg, server.ConfigFrom(cfg, Version), analyzer, contactService, logger)
	return srv.Start(ctx)
}
