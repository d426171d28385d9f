package server

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFInfo describes an uploaded PDF
type PDFInfo struct {
	Pages int
}

// InspectPDF parses the document structure of data. A failure means the
// upload carries a PDF header but a broken body.
func InspectPDF(data []byte) (info PDFInfo, err error) {
	// The parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFInfo{}, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return PDFInfo{Pages: reader.NumPage()}, nil
}
