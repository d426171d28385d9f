package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"atsquick/internal/errors"
	"atsquick/internal/utils"
)

// FileProcessor handles resume and report file operations
type FileProcessor struct {
	logger  *errors.Logger
	maxSize int64
}

// NewFileProcessor creates a file processor. maxSize <= 0 disables the size check.
func NewFileProcessor(logger *errors.Logger, maxSize int64) *FileProcessor {
	return &FileProcessor{logger: logger, maxSize: maxSize}
}

// ReadResume validates and reads a resume file
func (fp *FileProcessor) ReadResume(filename string) ([]byte, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		if _, statErr := os.Stat(filename); os.IsNotExist(statErr) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeMissingFile,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	if !utils.IsPDFFile(filename) && fp.logger != nil {
		fp.logger.Warn("Resume file does not have a .pdf extension", "filename", filename)
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil && fp.logger != nil {
			fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
		}
	}()

	var reader io.Reader = file
	if fp.maxSize > 0 {
		reader = io.LimitReader(file, fp.maxSize+1)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	if fp.maxSize > 0 && int64(len(content)) > fp.maxSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File %s exceeds the %s limit", filename, utils.FormatFileSize(fp.maxSize)), nil)
	}

	return content, nil
}

// WriteFile writes content to a file, creating parent directories
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError(errors.ErrCodeFileNotWritable,
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	if err := os.WriteFile(filename, content, 0600); err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ValidateOutputFile validates an output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError(errors.ErrCodeFileNotWritable,
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
