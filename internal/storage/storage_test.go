package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/locate918/eventengine/internal/event"
)

var testTime = time.Date(2026, 2, 1, 9, 30, 5, 0, time.UTC)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return s
}

func TestSaveAndLoadResult(t *testing.T) {
	s := newStorage(t)
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []*event.Event{
		{ID: "a", Title: "Jazz Night", Start: &start, SourceName: "Cain's Ballroom"},
		{ID: "b", Title: "Blues Jam", DateText: "TBA", SourceName: "Cain's Ballroom"},
	}

	name, err := s.SaveResult("Cain's Ballroom", events, testTime)
	if err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if name != "Cain_s_Ballroom_20260201_093005.json" {
		t.Errorf("file name = %q", name)
	}

	records, err := s.LoadResult(name)
	if err != nil {
		t.Fatalf("LoadResult() error = %v", err)
	}
	if len(records) != 2 || records[0]["title"] != "Jazz Night" || records[0]["start_time"] != "2026-03-01T20:00:00Z" {
		t.Errorf("records = %v", records)
	}

	if _, err := s.LoadResult("missing.json"); err == nil {
		t.Error("LoadResult(missing) should fail")
	}
}

func TestListAndLoadAll(t *testing.T) {
	s := newStorage(t)

	if _, err := s.SaveResult("older", []*event.Event{{Title: "One"}}, testTime); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveResult("older", []*event.Event{{Title: "Two"}, {Title: "Three"}}, testTime.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveResult("empty", nil, testTime); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSavedURL("https://venue.test/events", "Venue", true); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	files, err := s.ListResults()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	want := []string{"older_20260201_103005.json", "older_20260201_093005.json", "empty_20260201_093005.json", "broken.json"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("ListResults() = %v, want %v", names, want)
	}

	records, count, errs, err := s.LoadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || count != 2 || len(errs) != 1 {
		t.Errorf("LoadAll() = %d records, %d files, errs %v", len(records), count, errs)
	}
}

func TestSaveHTMLAndClear(t *testing.T) {
	s := newStorage(t)

	if _, err := s.SaveHTML("venue", "<html></html>", testTime); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveResult("venue", nil, testTime); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSavedURL("https://venue.test/", "Venue", false); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.Clear()
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("Clear() deleted %d, want 2", deleted)
	}
	if len(s.LoadSavedURLs()) != 1 {
		t.Error("Clear() removed the saved-URL list")
	}
}

func TestSavedURLs(t *testing.T) {
	s := newStorage(t)

	if got := s.LoadSavedURLs(); len(got) != 0 {
		t.Errorf("initial list = %v", got)
	}

	if _, err := s.AddSavedURL("https://a.test/", "A", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSavedURL("https://b.test/", "B", false); err != nil {
		t.Fatal(err)
	}
	urls, err := s.AddSavedURL("https://a.test/", "A renamed", false)
	if err != nil {
		t.Fatal(err)
	}
	want := []SavedURL{{URL: "https://a.test/", Name: "A renamed"}, {URL: "https://b.test/", Name: "B"}}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("after update = %+v", urls)
	}

	urls, err = s.RemoveSavedURL("https://a.test/")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(urls, want[1:]) || !reflect.DeepEqual(s.LoadSavedURLs(), want[1:]) {
		t.Errorf("after remove = %+v", urls)
	}

	if err := os.WriteFile(filepath.Join(s.Dir(), savedURLsFile), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadSavedURLs(); len(got) != 0 {
		t.Errorf("corrupt list = %v, want empty", got)
	}
}

func TestNew_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	s, err := New("~/data/eventengine")
	if err != nil {
		t.Fatal(err)
	}
	if s.Dir() != filepath.Join(home, "data", "eventengine") {
		t.Errorf("Dir() = %q", s.Dir())
	}
}
