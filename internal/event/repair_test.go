package event

import "testing"

func TestRepairTaggedTitle(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		want        string
		wantChanged bool
	}{
		{
			name:        "case boundary after title",
			title:       "Starlite Trivia NightTriviatriviatrivia night...",
			want:        "Starlite Trivia Night",
			wantChanged: true,
		},
		{
			name:        "repeated word",
			title:       "karaoke party night karaoke singing fun",
			want:        "karaoke party night",
			wantChanged: true,
		},
		{
			name:        "short title untouched",
			title:       "McDonald Show",
			want:        "McDonald Show",
			wantChanged: false,
		},
		{
			name:        "clean long title untouched",
			title:       "An Evening with the Tulsa Symphony",
			want:        "An Evening with the Tulsa Symphony",
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := RepairTaggedTitle(tt.title)
			if got != tt.want {
				t.Errorf("RepairTaggedTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
			if changed != tt.wantChanged {
				t.Errorf("RepairTaggedTitle(%q) changed = %v, want %v", tt.title, changed, tt.wantChanged)
			}
		})
	}
}

func TestCollapseDoubled(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Open Mic NightOpen Mic Night", "Open Mic Night"},
		{"Open Mic Night", "Open Mic Night"},
		{"Short", "Short"},
	}
	for _, tt := range tests {
		if got, _ := CollapseDoubled(tt.in); got != tt.want {
			t.Errorf("CollapseDoubled(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRepairDuplicatedDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Thu,Feb5, 2026 Thu, Feb 5 , 2026 On Sale Soon", "Feb 5, 2026"},
		{"Mar6 Mar 6 - 7, 2026 7 , 2026", "Mar 6 - 7, 2026"},
		{"Feb 5, 2026", "Feb 5, 2026"},
		{"Apr 10 On Sale Friday", "Apr 10"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got, _ := RepairDuplicatedDate(tt.in); got != tt.want {
				t.Errorf("RepairDuplicatedDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
