package recent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"chat-client/internal/repositories"
)

const (
	// StorageKey is the local storage slot of the search history.
	StorageKey = "searchHistory"
	// Limit is the number of searches kept.
	Limit = 5
)

// Searches is the most-recent-first, de-duplicated search history.
type Searches struct {
	mu      sync.Mutex
	storage repositories.LocalStorage
	terms   []string
}

// Load reads the stored history. A missing or corrupt slot starts empty.
func Load(ctx context.Context, storage repositories.LocalStorage) (*Searches, error) {
	s := &Searches{storage: storage, terms: []string{}}

	raw, err := storage.Get(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, repositories.ErrKeyNotFound) {
			return s, nil
		}
		return nil, err
	}

	var terms []string
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return s, nil
	}
	s.terms = normalize(terms)
	return s, nil
}

// Add moves term to the front, dropping duplicates and anything past Limit,
// then persists the list.
func (s *Searches) Add(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	s.mu.Lock()
	s.terms = normalize(append([]string{term}, s.terms...))
	payload, err := json.Marshal(s.terms)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, StorageKey, string(payload))
}

// List returns a copy of the history.
func (s *Searches) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.terms...)
}

func normalize(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, Limit)
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == Limit {
			break
		}
	}
	return out
}
