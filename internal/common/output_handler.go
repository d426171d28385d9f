package common

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"atsquick/internal/dashboard"
	"atsquick/internal/errors"
	"atsquick/internal/formatters"
	"atsquick/internal/report"
)

// FormatPDF selects the PDF report exporter instead of a text formatter
const FormatPDF = "pdf"

// CommandConfig holds common configuration for commands
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler handles formatting and writing output
type OutputHandler struct {
	fileProcessor *FileProcessor
	registry      *formatters.FormatterRegistry
	logger        *errors.Logger
	stdout        io.Writer
	now           func() time.Time
}

// NewOutputHandler creates an output handler writing to stdout when no file is given
func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	return NewOutputHandlerWithWriter(logger, os.Stdout)
}

// NewOutputHandlerWithWriter creates an output handler that uses stdout for
// output without a target file
func NewOutputHandlerWithWriter(logger *errors.Logger, stdout io.Writer) *OutputHandler {
	return &OutputHandler{
		fileProcessor: NewFileProcessor(logger, 0),
		registry:      formatters.GlobalRegistry,
		logger:        logger,
		stdout:        stdout,
		now:           time.Now,
	}
}

// HandleOutput formats view and writes it to the configured output.
// The pdf format always goes to a file, report.DefaultFilename when none is set.
func (oh *OutputHandler) HandleOutput(view dashboard.View, config CommandConfig) (string, error) {
	if config.OutputFormat == FormatPDF && config.OutputFile == "" {
		config.OutputFile = report.DefaultFilename
	}

	if err := oh.fileProcessor.ValidateOutputFile(config.OutputFile); err != nil {
		return "", err
	}

	output, err := oh.render(view, config.OutputFormat)
	if err != nil {
		return "", err
	}

	if config.OutputFile == "" {
		if _, err := oh.stdout.Write(output); err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotWritable, "Failed to write output", err)
		}
		return "", nil
	}

	if err := oh.fileProcessor.WriteFile(config.OutputFile, output); err != nil {
		return "", err
	}

	oh.logger.Info("Output written successfully",
		"file", config.OutputFile, "format", config.OutputFormat)
	return config.OutputFile, nil
}

func (oh *OutputHandler) render(view dashboard.View, format string) ([]byte, error) {
	if format == FormatPDF {
		var buf bytes.Buffer
		if err := report.Write(&buf, view, oh.now()); err != nil {
			return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "Failed to generate PDF report", err)
		}
		return buf.Bytes(), nil
	}

	output, err := oh.registry.Format(view, format)
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to format output as %s", format), err)
	}
	return []byte(output), nil
}

// GetSupportedFormats returns every format HandleOutput accepts
func (oh *OutputHandler) GetSupportedFormats() []string {
	return append([]string{FormatPDF}, oh.registry.GetSupportedFormats()...)
}
