package library

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"playing", StatusPlaying, false},
		{"On Hold", StatusOnHold, false},
		{"not_started", StatusNotStarted, false},
		{" completed ", StatusCompleted, false},
		{"finished", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSourceDefaultsToManual(t *testing.T) {
	got, err := ParseSource("")
	if err != nil || got != SourceManual {
		t.Fatalf("ParseSource(\"\") = %q, %v", got, err)
	}
	if _, err := ParseSource("gog-galaxy"); err == nil {
		t.Fatal("expected error for unknown source")
	}
}

func TestCloneCopiesPointersAndSlices(t *testing.T) {
	id := int64(42)
	original := Game{ID: "a", ExternalMatchID: &id, LastPlayed: tsPtr(1), Genres: []string{"RPG"}}
	clone := original.Clone()
	*clone.ExternalMatchID = 7
	*clone.LastPlayed = ts(99)
	clone.Genres[0] = "Action"
	if *original.ExternalMatchID != 42 || !original.LastPlayed.Equal(ts(1)) || original.Genres[0] != "RPG" {
		t.Fatalf("clone aliased the original: %#v", original)
	}
}
