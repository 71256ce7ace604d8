package ctx

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Strategy is a named bundle of budget and relevance preferences. It is a
// closed record: YAML files carrying unknown fields are rejected at load
// time rather than silently ignored.
type Strategy struct {
	Name string

	// ReservedTokens is held back from the total capacity for the system
	// prompt and the model's response.
	ReservedTokens int

	// PriorityPatterns are doublestar globs matched against candidate
	// identities; matches score ahead of ordinary candidates.
	PriorityPatterns []string

	// CategoryWeights overrides the default budget split. Nil keeps the
	// default 40/25/20/15.
	CategoryWeights map[Category]float64
}

// Validate checks the strategy is well formed.
func (s Strategy) Validate() error {
	if s.Name == "" {
		return configErrorf("strategy name must not be empty")
	}
	if s.ReservedTokens < 0 {
		return configErrorf("strategy %q: reserved tokens must not be negative", s.Name)
	}
	for _, pattern := range s.PriorityPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return configErrorf("strategy %q: invalid priority pattern %q", s.Name, pattern)
		}
	}
	if len(s.CategoryWeights) > 0 {
		if _, err := normalizedWeights(s.CategoryWeights); err != nil {
			return fmt.Errorf("strategy %q: %w", s.Name, err)
		}
	}
	return nil
}

// presets ships the default strategies.
func presets() []Strategy {
	return []Strategy{
		{
			Name:           "balanced",
			ReservedTokens: 4096,
		},
		{
			Name:           "debugging",
			ReservedTokens: 4096,
			PriorityPatterns: []string{
				"**/*_test.go",
				"**/*.log",
				"**/testdata/**",
			},
			CategoryWeights: map[Category]float64{
				CategoryConversation:       0.50,
				CategoryPinnedFiles:        0.25,
				CategoryRetrievedDocuments: 0.10,
				CategorySuggestedFiles:     0.15,
			},
		},
		{
			Name:           "refactoring",
			ReservedTokens: 2048,
			PriorityPatterns: []string{
				"**/internal/**",
				"**/*.go",
			},
			CategoryWeights: map[Category]float64{
				CategoryConversation:       0.25,
				CategoryPinnedFiles:        0.35,
				CategoryRetrievedDocuments: 0.10,
				CategorySuggestedFiles:     0.30,
			},
		},
		{
			Name:           "documentation",
			ReservedTokens: 2048,
			PriorityPatterns: []string{
				"**/*.md",
				"docs/**",
			},
			CategoryWeights: map[Category]float64{
				CategoryConversation:       0.30,
				CategoryPinnedFiles:        0.20,
				CategoryRetrievedDocuments: 0.35,
				CategorySuggestedFiles:     0.15,
			},
		},
	}
}

// Store maps strategy names to strategies. It ships the default presets and
// is caller-extensible via Register and LoadFile.
type Store struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewStore creates a store populated with the default presets.
func NewStore() *Store {
	store := &Store{strategies: make(map[string]Strategy)}
	for _, preset := range presets() {
		store.strategies[preset.Name] = preset
	}
	return store
}

// Register validates and adds (or replaces) a strategy.
func (s *Store) Register(strategy Strategy) error {
	if err := strategy.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[strategy.Name] = strategy
	return nil
}

// Get returns the named strategy.
func (s *Store) Get(name string) (Strategy, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	strategy, ok := s.strategies[name]
	return strategy, ok
}

// Names returns all registered strategy names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// strategyEntry is the YAML shape of a strategy. Weights are keyed by
// category name and converted after parsing.
type strategyEntry struct {
	Name             string             `yaml:"name"`
	ReservedTokens   int                `yaml:"reserved_tokens"`
	PriorityPatterns []string           `yaml:"priority_patterns"`
	CategoryWeights  map[string]float64 `yaml:"category_weights"`
}

type strategyFile struct {
	Strategies []strategyEntry `yaml:"strategies"`
}

// LoadFile registers every strategy found in a YAML file. Decoding is
// strict: unknown fields or unknown category names fail the whole load and
// register nothing.
func (s *Store) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open strategy file: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	var file strategyFile
	if err := decoder.Decode(&file); err != nil {
		return configErrorf("parse strategy file %s: %v", path, err)
	}

	loaded := make([]Strategy, 0, len(file.Strategies))
	for _, entry := range file.Strategies {
		strategy := Strategy{
			Name:             entry.Name,
			ReservedTokens:   entry.ReservedTokens,
			PriorityPatterns: entry.PriorityPatterns,
		}
		if len(entry.CategoryWeights) > 0 {
			strategy.CategoryWeights = make(map[Category]float64, len(entry.CategoryWeights))
			for name, weight := range entry.CategoryWeights {
				category, ok := ParseCategory(name)
				if !ok {
					return configErrorf("strategy file %s: unknown category %q in strategy %q", path, name, entry.Name)
				}
				strategy.CategoryWeights[category] = weight
			}
		}
		if err := strategy.Validate(); err != nil {
			return fmt.Errorf("strategy file %s: %w", path, err)
		}
		loaded = append(loaded, strategy)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, strategy := range loaded {
		s.strategies[strategy.Name] = strategy
	}
	return nil
}
