package config

import (
	"sync"
)

var loadedPrompts promptStore

// promptStore holds prompt content loaded from files. The prompt watcher
// replaces it while requests read it, so access is guarded.
type promptStore struct {
	mu            sync.RWMutex
	analyzeResume string
	source        string
}

// AnalyzeResume returns the loaded analysis prompt, or "" when none was loaded
func (p *promptStore) AnalyzeResume() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.analyzeResume
}

// Source returns the file the analysis prompt was loaded from
func (p *promptStore) Source() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

func (p *promptStore) setAnalyzeResume(content, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analyzeResume = content
	p.source = source
}

func (p *promptStore) reset() {
	p.setAnalyzeResume("", "")
}
