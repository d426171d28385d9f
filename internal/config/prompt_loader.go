package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// loadPromptsFromFiles loads the custom analysis prompt from an external file if a path is specified
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loadedPrompts.reset()

	if c.AI.CustomPrompts.AnalyzeResumeFile != "" {
		if err := c.ReloadAnalyzePrompt(); err != nil {
			return fmt.Errorf("failed to load analyze resume prompt: %w", err)
		}
	}

	c.logPromptLoadingSummary()
	return nil
}

// ReloadAnalyzePrompt re-reads the configured analysis prompt file.
// On failure the previously loaded prompt stays in place.
func (c *Config) ReloadAnalyzePrompt() error {
	path := c.AI.CustomPrompts.AnalyzeResumeFile
	if path == "" {
		return fmt.Errorf("no analyze resume prompt file configured")
	}

	content, absPath, err := loadPromptFromFile(path, "analyzeResume")
	if err != nil {
		return err
	}

	loadedPrompts.setAnalyzeResume(content, absPath)
	return nil
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, operation string) (string, string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve absolute path for %s prompt file '%s': %w", operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", "", fmt.Errorf("%s prompt file not found: %s", operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s prompt file '%s': %w", operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", "", fmt.Errorf("%s prompt file '%s' is empty", operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s prompt from file: %s (%d characters)",
		operation, absPath, len(trimmedContent))

	return trimmedContent, absPath, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	filePath := c.AI.CustomPrompts.AnalyzeResumeFile
	if filePath == "" {
		return nil
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("invalid path for analyzeResume prompt: %s", filePath)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return fmt.Errorf("analyzeResume prompt file not found: %s", absPath)
	}

	return nil
}

// logPromptLoadingSummary logs which analysis prompt source will be used
func (c *Config) logPromptLoadingSummary() {
	log.Println("[CONFIG] === Custom Prompt Loading Summary ===")

	switch {
	case loadedPrompts.AnalyzeResume() != "":
		log.Printf("[CONFIG] Analyze resume prompt: loaded from file %s", loadedPrompts.Source())
	case c.AI.CustomPrompts.AnalyzeResume != "":
		log.Println("[CONFIG] Analyze resume prompt: loaded from config")
	default:
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	}

	log.Println("[CONFIG] ==========================================")
}
