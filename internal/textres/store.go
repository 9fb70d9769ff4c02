// Package textres serves localized bot texts from a JSON or YAML file shaped
// as {"<language>": {"<key>": "<text>"}}.
package textres

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	yaml "go.yaml.in/yaml/v3"

	logx "glassbot/pkg/logx"
)

var ErrNoSuchTextResource = errors.New("textres: no such text resource")

// Texts maps language -> key -> text.
type Texts map[string]map[string]string

// Store is safe for concurrent use. Reload swaps the whole table atomically.
type Store struct {
	path string
	log  logx.Logger

	mu    sync.RWMutex
	texts Texts
}

// NewStatic returns a store over an in-memory table (no file, no reload).
func NewStatic(t Texts) *Store {
	return &Store{texts: cloneTexts(t), log: logx.Nop()}
}

// Open loads path. The format is picked by extension (.yaml/.yml, otherwise JSON).
func Open(path string, log logx.Logger) (*Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Store{path: path, log: log}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the text for key in lang.
func (s *Store) Get(key, lang string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if byKey, ok := s.texts[lang]; ok {
		if v, ok := byKey[key]; ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: key=%q lang=%q", ErrNoSuchTextResource, key, lang)
}

// Languages lists the loaded languages.
func (s *Store) Languages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.texts))
	for l := range s.texts {
		out = append(out, l)
	}
	return out
}

// Reload re-reads the file. On error the previous table is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	t, err := parseFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.texts = t
	s.mu.Unlock()
	s.log.Debug("text resources loaded", logx.String("path", s.path), logx.Int("languages", len(t)))
	return nil
}

func parseFile(path string) (Texts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Texts
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &t)
	default:
		err = json.Unmarshal(b, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("textres: parse %s: %w", path, err)
	}
	if t == nil {
		t = Texts{}
	}
	return t, nil
}

func cloneTexts(in Texts) Texts {
	out := make(Texts, len(in))
	for lang, byKey := range in {
		m := make(map[string]string, len(byKey))
		for k, v := range byKey {
			m[k] = v
		}
		out[lang] = m
	}
	return out
}
