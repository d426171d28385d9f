package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4"), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"existing file", file, false},
		{"empty name", "", true},
		{"missing file", filepath.Join(dir, "missing.pdf"), true},
		{"directory", dir, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInputFile(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "nested", "report.pdf")

	if err := ValidateOutputFile(target); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if info, err := os.Stat(filepath.Dir(target)); err != nil || !info.IsDir() {
		t.Errorf("Expected output directory to be created, stat error: %v", err)
	}
}

func TestIsPDFFile(t *testing.T) {
	tests := map[string]bool{
		"resume.pdf":  true,
		"RESUME.PDF":  true,
		"resume.docx": false,
		"resume":      false,
	}
	for name, want := range tests {
		if got := IsPDFFile(name); got != want {
			t.Errorf("IsPDFFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{10 * 1024 * 1024, "10.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
