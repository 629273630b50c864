// Package querycache persists query results to a single JSON document
// on disk so pages and bots can re-offer recent answers without
// hitting the upstream APIs again.
package querycache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sportscast/pkg/logger"
	"sportscast/pkg/model"
)

const documentVersion = "1.0"

// DefaultMaxAge is how long an entry survives across restarts before
// the loader drops it.
const DefaultMaxAge = 7 * 24 * time.Hour

type metadata struct {
	LastUpdated string `json:"last_updated"`
	Version     string `json:"version"`
}

type document struct {
	Motorsport map[string]model.CacheEntry `json:"motorsport"`
	Football   map[string]model.CacheEntry `json:"football"`
	Basketball map[string]model.CacheEntry `json:"basketball"`
	Metadata   metadata                    `json:"metadata"`
}

func emptyDocument() document {
	return document{
		Motorsport: map[string]model.CacheEntry{},
		Football:   map[string]model.CacheEntry{},
		Basketball: map[string]model.CacheEntry{},
		Metadata: metadata{
			LastUpdated: time.Now().Format(time.RFC3339Nano),
			Version:     documentVersion,
		},
	}
}

func (d *document) bucket(domain model.Domain) map[string]model.CacheEntry {
	switch domain {
	case model.DomainMotorsport:
		return d.Motorsport
	case model.DomainFootball:
		return d.Football
	case model.DomainBasketball:
		return d.Basketball
	}
	return nil
}

// Store is a disk backed result cache. All methods are safe for
// concurrent use; every mutation is written through to the file.
type Store struct {
	mu     sync.RWMutex
	path   string
	maxAge time.Duration
	doc    document
}

// Open loads the store from path, dropping entries older than maxAge
// and entries whose timestamp cannot be parsed. A missing or corrupt
// file yields an empty store rather than an error, so a damaged cache
// never blocks startup.
func Open(path string, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	s := &Store{path: path, maxAge: maxAge, doc: emptyDocument()}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s
	}
	if err != nil {
		logger.Warn("Failed to read query cache, starting empty", zap.Error(err))
		return s
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		logger.Warn("Failed to parse query cache, starting empty", zap.Error(err))
		return s
	}
	if doc.Motorsport == nil {
		doc.Motorsport = map[string]model.CacheEntry{}
	}
	if doc.Football == nil {
		doc.Football = map[string]model.CacheEntry{}
	}
	if doc.Basketball == nil {
		doc.Basketball = map[string]model.CacheEntry{}
	}
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = documentVersion
	}

	s.doc = doc
	s.dropExpired()
	return s
}

func (s *Store) dropExpired() {
	cutoff := time.Now().Add(-s.maxAge)
	for _, domain := range model.Domains {
		bucket := s.doc.bucket(domain)
		for key, entry := range bucket {
			at, err := parseTimestamp(entry.Timestamp)
			if err != nil || at.Before(cutoff) {
				delete(bucket, key)
				logger.Info("Dropped expired cache entry",
					zap.String("domain", string(domain)),
					zap.String("key", key),
				)
			}
		}
	}
}

func parseTimestamp(ts string) (time.Time, error) {
	if at, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return at, nil
	}
	return time.Parse(time.RFC3339, ts)
}

// BuildKey derives the deterministic cache key for a query. The
// player parameter is deliberately not part of the key.
func BuildKey(queryType model.Intent, params model.QueryParams) string {
	parts := []string{string(queryType)}
	if params.LeagueID != nil {
		parts = append(parts, fmt.Sprintf("league_id_%d", *params.LeagueID))
	}
	if params.Team != "" {
		parts = append(parts, "team_"+params.Team)
	}
	if params.Year != nil {
		parts = append(parts, fmt.Sprintf("year_%d", *params.Year))
	}
	if params.Round != nil {
		parts = append(parts, fmt.Sprintf("round_%d", *params.Round))
	}
	return strings.Join(parts, "_")
}

// Put stores a result under its derived key, overwriting any previous
// entry for the same query, and flushes the document to disk. It
// returns the cache key. A failed flush does not fail the call: the
// entry is live in memory and only durability across restarts is lost.
func (s *Store) Put(domain model.Domain, queryType model.Intent, params model.QueryParams, result model.Payload, originalText string) (string, error) {
	if !domain.Valid() {
		return "", fmt.Errorf("unknown domain %q", domain)
	}

	key := BuildKey(queryType, params)
	entry := model.CacheEntry{
		QueryType:    queryType,
		Params:       params,
		Result:       result,
		OriginalText: originalText,
		Timestamp:    time.Now().Format(time.RFC3339Nano),
		Success:      result.Success(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc.bucket(domain)[key] = entry
	s.save()

	logger.Info("Stored query result",
		zap.String("domain", string(domain)),
		zap.String("key", key),
		zap.Bool("success", entry.Success),
	)
	return key, nil
}

// Get returns the entry stored under key in the given domain.
func (s *Store) Get(domain model.Domain, key string) (model.CacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.doc.bucket(domain)
	if bucket == nil {
		return model.CacheEntry{}, false
	}
	entry, ok := bucket[key]
	return entry, ok
}

// Options lists the successful entries of one domain and query type
// as presentable selector options, most recent first. Entries the
// label rules below cannot describe are skipped.
func (s *Store) Options(domain model.Domain, queryType model.Intent) []model.Option {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.doc.bucket(domain)
	options := make([]model.Option, 0, len(bucket))
	for key, entry := range bucket {
		if entry.QueryType != queryType || !entry.Success {
			continue
		}
		opt, ok := buildOption(domain, queryType, key, entry)
		if !ok {
			continue
		}
		options = append(options, opt)
	}

	sort.SliceStable(options, func(i, j int) bool {
		return options[i].Timestamp > options[j].Timestamp
	})
	return options
}

func buildOption(domain model.Domain, queryType model.Intent, key string, entry model.CacheEntry) (model.Option, bool) {
	switch {
	case domain == model.DomainFootball && queryType == model.IntentStandings:
		if entry.Params.LeagueID == nil {
			return model.Option{}, false
		}
		id := *entry.Params.LeagueID
		return model.Option{
			Value:        id,
			Label:        LeagueName(id),
			CacheKey:     key,
			OriginalText: entry.OriginalText,
			Timestamp:    entry.Timestamp,
		}, true

	case domain == model.DomainBasketball && queryType == model.IntentSchedule:
		if entry.Params.Team == "" {
			return model.Option{}, false
		}
		return model.Option{
			Value:        entry.Params.Team,
			Label:        entry.Params.Team + " schedule",
			CacheKey:     key,
			OriginalText: entry.OriginalText,
			Timestamp:    entry.Timestamp,
		}, true

	case domain == model.DomainMotorsport && queryType == model.IntentStandings:
		year := time.Now().Year()
		if entry.Params.Year != nil {
			year = *entry.Params.Year
		}
		return model.Option{
			Value:        fmt.Sprintf("f1_%d", year),
			Label:        fmt.Sprintf("%d driver standings", year),
			CacheKey:     key,
			OriginalText: entry.OriginalText,
			Timestamp:    entry.Timestamp,
		}, true
	}
	return model.Option{}, false
}

// Snapshot returns a deep copy of the whole document for read only
// presentation.
func (s *Store) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := map[string]interface{}{
		"metadata": map[string]interface{}{
			"last_updated": s.doc.Metadata.LastUpdated,
			"version":      s.doc.Metadata.Version,
		},
	}
	for _, domain := range model.Domains {
		bucket := s.doc.bucket(domain)
		entries := make(map[string]model.CacheEntry, len(bucket))
		for key, entry := range bucket {
			entries[key] = entry
		}
		snap[string(domain)] = entries
	}
	return snap
}

// Clear removes every entry of one domain. Clearing an already empty
// domain is a no-op apart from the metadata refresh.
func (s *Store) Clear(domain model.Domain) error {
	if !domain.Valid() {
		return fmt.Errorf("unknown domain %q", domain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch domain {
	case model.DomainMotorsport:
		s.doc.Motorsport = map[string]model.CacheEntry{}
	case model.DomainFootball:
		s.doc.Football = map[string]model.CacheEntry{}
	case model.DomainBasketball:
		s.doc.Basketball = map[string]model.CacheEntry{}
	}

	logger.Info("Cleared query cache", zap.String("domain", string(domain)))
	s.save()
	return nil
}

// ClearAll resets the store to an empty document.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = emptyDocument()
	logger.Info("Cleared query cache for all domains")
	s.save()
	return nil
}

// save writes the document to disk. Callers must hold the write lock.
// A write failure is logged and swallowed so an unwritable cache file
// never breaks query handling; the in-memory state stays authoritative.
func (s *Store) save() {
	s.doc.Metadata.LastUpdated = time.Now().Format(time.RFC3339Nano)

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Failed to persist query cache",
				zap.String("path", s.path),
				zap.Error(err),
			)
			return
		}
	}

	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		logger.Error("Failed to persist query cache",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		logger.Error("Failed to persist query cache",
			zap.String("path", s.path),
			zap.Error(err),
		)
	}
}

// LeagueName resolves a competition ID to its display name.
func LeagueName(id int) string {
	names := map[int]string{
		2021: "Premier League",
		2014: "La Liga",
		2002: "Bundesliga",
		2019: "Serie A",
		2015: "Ligue 1",
		2017: "Primeira Liga",
		2003: "Eredivisie",
		2013: "Série A",
	}
	if name, ok := names[id]; ok {
		return name
	}
	return fmt.Sprintf("League %d", id)
}
