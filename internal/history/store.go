package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"sla-mcp/internal/jira"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store provides thread-safe storage of the latest known snapshot of every
// issue, partitioned by source.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]map[string]jira.IssueDTO // sourceID -> issue key -> snapshot
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]map[string]jira.IssueDTO),
	}
}

// SourceID derives a stable, file-name safe identifier from a JQL query.
func SourceID(jql string) string {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.TrimSpace(jql)))
	return "jql-" + id.String()[:8]
}

// Upsert merges snapshots into a source. A snapshot replaces the stored one
// only when it is at least as recently updated. It returns how many issues
// were added or replaced.
func (s *Store) Upsert(sourceID string, issues []jira.IssueDTO) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.snapshots[sourceID]
	if !ok {
		bucket = make(map[string]jira.IssueDTO)
		s.snapshots[sourceID] = bucket
	}

	changed := 0
	for _, dto := range issues {
		if dto.Key == "" {
			continue
		}
		if existing, ok := bucket[dto.Key]; ok && updatedAt(existing).After(updatedAt(dto)) {
			continue
		}
		bucket[dto.Key] = dto
		changed++
	}
	return changed
}

// Load reads snapshots from a JSONL cache file for the given source.
func (s *Store) Load(cacheDir string, sourceID string) error {
	file, err := os.Open(cachePath(cacheDir, sourceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache yet, not an error
		}
		return fmt.Errorf("failed to open cache: %w", err)
	}
	defer file.Close()

	var issues []jira.IssueDTO
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var dto jira.IssueDTO
		if err := json.Unmarshal(scanner.Bytes(), &dto); err != nil {
			log.Warn().Err(err).Str("source", sourceID).Msg("Skipping invalid JSON line in cache")
			continue
		}
		issues = append(issues, dto)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading cache: %w", err)
	}

	log.Info().Str("source", sourceID).Int("count", len(issues)).Msg("Loaded issues from cache")
	s.Upsert(sourceID, issues)
	return nil
}

// Save persists the snapshots of a source to a JSONL cache file, replacing
// the previous file atomically.
func (s *Store) Save(cacheDir string, sourceID string) error {
	issues := s.Issues(sourceID)
	if len(issues) == 0 {
		return nil
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	path := cachePath(cacheDir, sourceID)
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)

	for _, dto := range issues {
		if err := encoder.Encode(dto); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("failed to encode issue %s: %w", dto.Key, err)
		}
	}

	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Info().Str("source", sourceID).Int("count", len(issues)).Msg("Issue snapshots saved to cache")
	return nil
}

// LatestUpdated returns the most recent update instant seen for a source.
func (s *Store) LatestUpdated(sourceID string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest time.Time
	for _, dto := range s.snapshots[sourceID] {
		if u := updatedAt(dto); u.After(latest) {
			latest = u
		}
	}
	return latest
}

// Issues returns the snapshots of a source ordered by issue key.
func (s *Store) Issues(sourceID string) []jira.IssueDTO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.snapshots[sourceID]
	out := make([]jira.IssueDTO, 0, len(bucket))
	for _, dto := range bucket {
		out = append(out, dto)
	}
	slices.SortFunc(out, func(a, b jira.IssueDTO) int {
		return compareKeys(a.Key, b.Key)
	})
	return out
}

// Get returns the snapshot of one issue.
func (s *Store) Get(sourceID, key string) (jira.IssueDTO, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dto, ok := s.snapshots[sourceID][key]
	return dto, ok
}

// Count returns the number of issues stored for a source.
func (s *Store) Count(sourceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots[sourceID])
}

// Clear drops every snapshot of a source from memory.
func (s *Store) Clear(sourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sourceID)
}

// DeleteCache removes the cache file of a source.
func DeleteCache(cacheDir, sourceID string) error {
	if err := os.Remove(cachePath(cacheDir, sourceID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func cachePath(cacheDir, sourceID string) string {
	return filepath.Join(cacheDir, fmt.Sprintf("%s.jsonl", sourceID))
}

func updatedAt(dto jira.IssueDTO) time.Time {
	t, err := jira.ParseTime(dto.Fields.Updated)
	if err != nil {
		return time.Time{}
	}
	return t
}

// compareKeys orders PROJ-9 before PROJ-10.
func compareKeys(a, b string) int {
	pa, na := splitKey(a)
	pb, nb := splitKey(b)
	if c := strings.Compare(pa, pb); c != 0 {
		return c
	}
	if na != nb {
		if na < nb {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func splitKey(key string) (string, int) {
	i := strings.LastIndexByte(key, '-')
	if i < 0 {
		return key, 0
	}
	n := 0
	for _, r := range key[i+1:] {
		if r < '0' || r > '9' {
			return key, 0
		}
		n = n*10 + int(r-'0')
	}
	return key[:i], n
}
