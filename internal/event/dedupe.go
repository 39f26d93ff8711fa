package event

// Dedupe drops events with empty titles and keeps only the first event for
// each case-insensitive trimmed title. IDs are regenerated from the final
// title and date text.
func Dedupe(events []*Event) []*Event {
	seen := make(map[string]bool, len(events))
	unique := make([]*Event, 0, len(events))
	for _, evt := range events {
		if evt == nil {
			continue
		}
		key := TitleKey(evt.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		evt.ID = GenerateID(evt.SourceName, evt.Title, evt.DateText)
		unique = append(unique, evt)
	}
	return unique
}

// TitleSet tracks titles already emitted by one extractor.
type TitleSet map[string]struct{}

// Add records title and reports whether it was new. Empty titles are never new.
func (s TitleSet) Add(title string) bool {
	key := TitleKey(title)
	if key == "" {
		return false
	}
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}
