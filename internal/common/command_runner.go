package common

import (
	"context"
	"path/filepath"

	"atsquick/internal/client"
	"atsquick/internal/errors"
	"atsquick/internal/store"
	"atsquick/internal/types"
	"atsquick/internal/utils"
)

// AnalyzeFunc performs one analysis of an uploaded resume
type AnalyzeFunc func(ctx context.Context, filename string, data []byte) (types.AnalysisResult, error)

// ProgressFunc runs task while showing progress to the user
type ProgressFunc func(label string, task func() error) error

// NoProgress runs task without any progress display
func NoProgress(_ string, task func() error) error {
	return task()
}

// AnalysisRun bundles what RunAnalysis needs besides the resume path
type AnalysisRun struct {
	Logger      *errors.Logger
	MaxFileSize int64
	Analyze     AnalyzeFunc
	Progress    ProgressFunc
	Store       store.Store
}

// RunAnalysis reads and validates a resume, analyzes it and stores the result.
// The store is only written after a successful analysis. The context passed to
// Analyze is cancelled as soon as the progress display returns, so an
// interrupted wait also stops the request.
func RunAnalysis(ctx context.Context, run AnalysisRun, path string) (types.AnalysisResult, error) {
	progress := run.Progress
	if progress == nil {
		progress = NoProgress
	}

	data, err := NewFileProcessor(run.Logger, run.MaxFileSize).ReadResume(path)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(path)
	if err := client.ValidateUpload(filename, data); err != nil {
		return nil, err
	}

	run.Logger.Info("Starting resume analysis",
		"filename", filename,
		"size", utils.FormatFileSize(int64(len(data))))

	analyzeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan types.AnalysisResult, 1)
	err = progress("Analyzing resume...", func() error {
		result, analyzeErr := run.Analyze(analyzeCtx, filename, data)
		if analyzeErr != nil {
			return analyzeErr
		}
		results <- result
		return nil
	})
	cancel()
	if err != nil {
		return nil, err
	}

	var result types.AnalysisResult
	select {
	case result = <-results:
	default:
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Analysis finished without a result", nil)
	}

	if err := run.Store.Save(ctx, result); err != nil {
		return nil, err
	}

	run.Logger.Info("Resume analysis stored", "keys", len(result))
	return result, nil
}
