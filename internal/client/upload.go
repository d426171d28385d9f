package client

import (
	"bytes"
	"path/filepath"
	"strings"

	"atsquick/internal/errors"
)

// User-facing messages shown before any network call is made
const (
	MessageNoFile = "Please upload a resume"
	MessageNotPDF = "Only PDF files are allowed"
)

// pdfMagic is the header every PDF document starts with
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether data starts with the PDF header
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// ValidateUpload checks a selected file before it is handed to the client.
// The returned AppError message is meant for the user.
func ValidateUpload(filename string, data []byte) error {
	if filename == "" || len(data) == 0 {
		return errors.NewValidationError(errors.ErrCodeMissingFile, MessageNoFile, nil)
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") || !IsPDF(data) {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, MessageNotPDF, nil).
			WithContext("filename", filepath.Base(filename))
	}
	return nil
}
