package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// LikedSet — локальный набор лайкнутых сообщений, сохраняемый в JSON-файл.
// Это кэш для отображения: источник истины — ответы сервера (Reconcile).
type LikedSet struct {
	mu   sync.Mutex
	path string
	ids  map[string]struct{}
}

// LoadLikedSet читает набор из path; отсутствующий файл — пустой набор.
func LoadLikedSet(path string) (*LikedSet, error) {
	s := &LikedSet{path: path, ids: make(map[string]struct{})}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("client: read liked set: %w", err)
	}

	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("client: parse liked set %q: %w", path, err)
	}

	for _, id := range ids {
		s.ids[id] = struct{}{}
	}

	return s, nil
}

func (s *LikedSet) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ids[id]
	return ok
}

// IDs — отсортированный снимок набора.
func (s *LikedSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)

	return out
}

// Reconcile приводит запись id к состоянию liked, пришедшему с сервера, и сохраняет
// файл, если набор изменился.
func (s *LikedSet) Reconcile(id string, liked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, had := s.ids[id]
	if had == liked {
		return nil
	}

	if liked {
		s.ids[id] = struct{}{}
	} else {
		delete(s.ids, id)
	}

	return s.saveLocked()
}

// ReconcilePage применяет likedByMe всех сообщений страницы.
func (s *LikedSet) ReconcilePage(p *Page) error {
	for _, m := range p.Messages {
		if err := s.Reconcile(m.ID, m.LikedByMe); err != nil {
			return err
		}
	}
	return nil
}

// saveLocked пишет во временный файл и переименовывает его поверх основного.
func (s *LikedSet) saveLocked() error {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("client: encode liked set: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("client: save liked set: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".liked-*.json")
	if err != nil {
		return fmt.Errorf("client: save liked set: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("client: save liked set: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("client: save liked set: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("client: save liked set: %w", err)
	}

	return nil
}
