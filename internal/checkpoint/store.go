// Package checkpoint persists crawl progress between runs: the set of
// visited record identifiers and the index of the last uploaded shard.
//
// State lives in two plain files inside the checkpoint directory so the CI
// deployment can commit them back to version control after each run:
// visited.txt, a newline-delimited append-only identifier log, and
// last_shard.txt, a single integer.
//
// A checkpoint directory belongs to exactly one record source. Sources use
// different identifier shapes, and the visited count feeds resume offset
// derivation, so mixing sources in one directory would corrupt resumption.
// The command layer namespaces the directory by source name.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	visitedFile = "visited.txt"
	shardFile   = "last_shard.txt"
)

// Store implements the crawl.Checkpoint contract on flat files.
type Store struct {
	dir    string
	logger *zap.Logger

	visited   map[string]struct{}
	pending   []string
	lastShard int
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first Persist, not here, so a read-only dry run touches nothing.
func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{
		dir:     dir,
		logger:  logger,
		visited: make(map[string]struct{}),
	}
}

// Load reads prior state from disk. A missing or unreadable checkpoint is
// treated as empty state with a warning: re-fetching with dedup is cheaper
// than refusing to run.
func (s *Store) Load() error {
	s.visited = make(map[string]struct{})
	s.pending = nil
	s.lastShard = 0

	if err := s.loadVisited(); err != nil {
		s.logger.Warn("Visited log unreadable; starting from empty state",
			zap.String("path", s.visitedPath()), zap.Error(err))
	}
	if err := s.loadShardCounter(); err != nil {
		s.logger.Warn("Shard counter unreadable; starting from zero",
			zap.String("path", s.shardPath()), zap.Error(err))
	}
	s.logger.Info("Checkpoint loaded",
		zap.Int("visited", len(s.visited)),
		zap.Int("last_shard", s.lastShard))
	return nil
}

func (s *Store) loadVisited() error {
	f, err := os.Open(s.visitedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open visited log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Identifiers are short, but leave headroom for URL-shaped ones.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id != "" {
			s.visited[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan visited log: %w", err)
	}
	return nil
}

func (s *Store) loadShardCounter() error {
	data, err := os.ReadFile(s.shardPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read shard counter: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse shard counter %q: %w", strings.TrimSpace(string(data)), err)
	}
	if n < 0 {
		return fmt.Errorf("negative shard counter %d", n)
	}
	s.lastShard = n
	return nil
}

// Visited reports whether id has been seen.
func (s *Store) Visited(id string) bool {
	_, ok := s.visited[id]
	return ok
}

// MarkVisited records id as seen in memory. The identifier reaches disk on
// the next Persist. Marking twice has no additional effect.
func (s *Store) MarkVisited(id string) {
	if _, ok := s.visited[id]; ok {
		return
	}
	s.visited[id] = struct{}{}
	s.pending = append(s.pending, id)
}

// VisitedCount returns the current size of the visited set.
func (s *Store) VisitedCount() int {
	return len(s.visited)
}

// LastShard returns the index of the last persisted shard.
func (s *Store) LastShard() int {
	return s.lastShard
}

// Persist appends the identifiers marked since Load to the visited log and
// writes lastShard as the new counter. The counter write goes through a
// temp file and rename so a crash never leaves a half-written integer.
func (s *Store) Persist(lastShard int) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir %s: %w", s.dir, err)
	}

	if len(s.pending) > 0 {
		f, err := os.OpenFile(s.visitedPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open visited log for append: %w", err)
		}
		w := bufio.NewWriter(f)
		for _, id := range s.pending {
			if _, err := w.WriteString(id + "\n"); err != nil {
				f.Close()
				return fmt.Errorf("append visited id: %w", err)
			}
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return fmt.Errorf("flush visited log: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close visited log: %w", err)
		}
		s.pending = nil
	}

	tmp := s.shardPath() + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(lastShard)+"\n"), 0o600); err != nil {
		return fmt.Errorf("write shard counter: %w", err)
	}
	if err := os.Rename(tmp, s.shardPath()); err != nil {
		return fmt.Errorf("replace shard counter: %w", err)
	}
	s.lastShard = lastShard
	return nil
}

// Reset removes both checkpoint files and clears in-memory state. Uploaded
// shard files are history and stay untouched.
func (s *Store) Reset() error {
	for _, p := range []string{s.visitedPath(), s.shardPath()} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	s.visited = make(map[string]struct{})
	s.pending = nil
	s.lastShard = 0
	return nil
}

func (s *Store) visitedPath() string {
	return filepath.Join(s.dir, visitedFile)
}

func (s *Store) shardPath() string {
	return filepath.Join(s.dir, shardFile)
}
