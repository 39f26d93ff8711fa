package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

const (
	savedURLsFile = "saved_urls.json"
	venuesFile    = "venues.json"

	timestampLayout = "20060102_150405"
)

var unsafeName = regexp.MustCompile(`[^\w\-]`)

// Storage handles persistence of extraction results
type Storage struct {
	dataDir string
}

// FileInfo describes one saved result file.
type FileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// SavedURL is an entry of the saved-URL list.
type SavedURL struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	// Render requests a headless-browser fetch.
	Render bool `json:"playwright"`
}

// New creates a new Storage instance
func New(dataDir string) (*Storage, error) {
	// Expand ~ to home directory
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// Dir returns the data directory.
func (s *Storage) Dir() string {
	return s.dataDir
}

// baseName returns the file stem for a source at a given time.
func baseName(source string, at time.Time) string {
	if source == "" {
		source = "unknown"
	}
	return unsafeName.ReplaceAllString(source, "_") + "_" + at.Format(timestampLayout)
}

// SaveResult writes events to <source>_<timestamp>.json and returns the
// file name.
func (s *Storage) SaveResult(source string, events []*event.Event, at time.Time) (string, error) {
	if events == nil {
		events = []*event.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding events: %w", err)
	}

	name := baseName(source, at) + ".json"
	if err := os.WriteFile(filepath.Join(s.dataDir, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing result: %w", err)
	}
	return name, nil
}

// SaveHTML keeps the page a result was extracted from, for reference.
func (s *Storage) SaveHTML(source, html string, at time.Time) (string, error) {
	name := baseName(source, at) + ".html"
	if err := os.WriteFile(filepath.Join(s.dataDir, name), []byte(html), 0644); err != nil {
		return "", fmt.Errorf("writing page: %w", err)
	}
	return name, nil
}

// ListResults returns the saved result files, newest name first.
func (s *Storage) ListResults() ([]FileInfo, error) {
	matches, err := filepath.Glob(filepath.Join(s.dataDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}

	var files []FileInfo
	for _, path := range matches {
		name := filepath.Base(path)
		if isReserved(name) {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}

// LoadResult reads one result file as loosely-typed records, so files
// written by other tools load too.
func (s *Storage) LoadResult(name string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Join(s.dataDir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing result %s: %w", name, err)
	}
	return records, nil
}

// LoadAll reads every result file. Unreadable files are reported in errs
// and skipped; files counts the non-empty files read.
func (s *Storage) LoadAll() (records []map[string]interface{}, files int, errs []string, err error) {
	list, err := s.ListResults()
	if err != nil {
		return nil, 0, nil, err
	}
	for _, f := range list {
		recs, err := s.LoadResult(f.Name)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		if len(recs) > 0 {
			files++
			records = append(records, recs...)
		}
	}
	return records, files, errs, nil
}

// Clear deletes result and page files, keeping the saved-URL list and the
// venue table. It returns the number of files deleted.
func (s *Storage) Clear() (int, error) {
	deleted := 0
	for _, pattern := range []string{"*.json", "*.html"} {
		matches, err := filepath.Glob(filepath.Join(s.dataDir, pattern))
		if err != nil {
			return deleted, fmt.Errorf("listing files: %w", err)
		}
		for _, path := range matches {
			if isReserved(filepath.Base(path)) {
				continue
			}
			if err := os.Remove(path); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

func isReserved(name string) bool {
	return name == savedURLsFile || name == venuesFile
}

// LoadSavedURLs returns the saved-URL list. A missing or corrupt file reads
// as an empty list.
func (s *Storage) LoadSavedURLs() []SavedURL {
	data, err := os.ReadFile(filepath.Join(s.dataDir, savedURLsFile))
	if err != nil {
		return []SavedURL{}
	}
	var urls []SavedURL
	if err := json.Unmarshal(data, &urls); err != nil {
		return []SavedURL{}
	}
	return urls
}

// AddSavedURL adds a URL, or updates its name and render flag when it is
// already listed, and returns the new list.
func (s *Storage) AddSavedURL(rawURL, name string, render bool) ([]SavedURL, error) {
	urls := s.LoadSavedURLs()
	found := false
	for i := range urls {
		if urls[i].URL == rawURL {
			urls[i].Name = name
			urls[i].Render = render
			found = true
			break
		}
	}
	if !found {
		urls = append(urls, SavedURL{URL: rawURL, Name: name, Render: render})
	}
	return urls, s.writeSavedURLs(urls)
}

// RemoveSavedURL drops a URL and returns the new list.
func (s *Storage) RemoveSavedURL(rawURL string) ([]SavedURL, error) {
	urls := s.LoadSavedURLs()
	kept := urls[:0]
	for _, u := range urls {
		if u.URL != rawURL {
			kept = append(kept, u)
		}
	}
	return kept, s.writeSavedURLs(kept)
}

func (s *Storage) writeSavedURLs(urls []SavedURL) error {
	data, err := json.MarshalIndent(urls, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding saved urls: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataDir, savedURLsFile), data, 0644); err != nil {
		return fmt.Errorf("writing saved urls: %w", err)
	}
	return nil
}
