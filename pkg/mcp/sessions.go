package mcp

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gnana997/snipkit/pkg/dialogue"
)

// sessions holds open dialogues. When full, the least recently used one
// is closed, which saves its preferences like any other close.
type sessions struct {
	cache  *lru.Cache[string, *dialogue.Dialogue]
	logger *slog.Logger
}

func newSessions(size int, logger *slog.Logger) (*sessions, error) {
	s := &sessions{logger: logger}
	cache, err := lru.NewWithEvict(size, s.evicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

func (s *sessions) evicted(id string, d *dialogue.Dialogue) {
	if err := d.Close(context.Background()); err != nil {
		s.logger.Warn("failed to close dialogue", "dialogue", id, "error", err)
		return
	}
	s.logger.Debug("dialogue session ended", "dialogue", id)
}

func (s *sessions) add(d *dialogue.Dialogue) { s.cache.Add(d.ID(), d) }

func (s *sessions) get(id string) (*dialogue.Dialogue, bool) { return s.cache.Get(id) }

func (s *sessions) remove(id string) { s.cache.Remove(id) }

func (s *sessions) len() int { return s.cache.Len() }

func (s *sessions) closeAll() int {
	n := s.cache.Len()
	s.cache.Purge()
	return n
}
