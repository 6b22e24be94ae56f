// Package prompts loads and renders PromptQA's prompt templates. Templates
// are opaque `{{placeholder}}` text files — this package never
// inspects their content beyond substitution.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/promptqa/promptqa/pkg/util"
)

// Name identifies one template file (without extension) under prompts/.
type Name string

const (
	Planner         Name = "planner"
	PlannerRepair   Name = "planner_repair"
	Evaluator       Name = "evaluator"
	EvaluatorRepair Name = "evaluator_repair"
	AgentStep       Name = "agent_step"
	AgentFinal      Name = "agent_final"
)

// Store caches loaded template text and renders it with variable
// substitution.
type Store struct {
	mu   sync.Mutex
	dir  string
	text map[Name]string
}

// NewStore creates a Store that loads templates from dir, or auto-discovers
// a prompts/ directory (cwd, then the directory containing the running
// binary) when dir is empty.
func NewStore(dir string) *Store {
	return &Store{dir: dir, text: make(map[Name]string)}
}

// Render loads (and caches) the named template, then substitutes
// {{key}} placeholders from vars using util.VarPattern.
func (s *Store) Render(name Name, vars map[string]string) (string, error) {
	s.mu.Lock()
	text, ok := s.text[name]
	s.mu.Unlock()
	if !ok {
		loaded, err := s.load(name)
		if err != nil {
			return "", err
		}
		text = loaded
		s.mu.Lock()
		s.text[name] = text
		s.mu.Unlock()
	}

	return util.VarPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := util.VarPattern.FindStringSubmatch(match)[1]
		if v, ok := vars[key]; ok {
			return v
		}
		return ""
	}), nil
}

func (s *Store) load(name Name) (string, error) {
	dir := s.dir
	if dir == "" {
		var err error
		dir, err = findPromptsDir()
		if err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, string(name)+".tmpl")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("prompts: loading %s: %w", name, err)
	}
	return string(data), nil
}

// findPromptsDir searches cwd and the running binary's directory for a
// prompts/ subdirectory.
func findPromptsDir() (string, error) {
	candidates := []string{"prompts"}

	if cwd, err := os.Getwd(); err == nil {
		for _, c := range candidates {
			p := filepath.Join(cwd, c)
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				return p, nil
			}
		}
	}

	if exe, err := os.Executable(); err == nil {
		base := filepath.Dir(exe)
		for _, c := range candidates {
			p := filepath.Join(base, c)
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				return p, nil
			}
		}
	}

	return "", fmt.Errorf("prompts: could not locate a prompts/ directory relative to cwd or the binary")
}
