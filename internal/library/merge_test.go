package library

import (
	"testing"
	"time"
)

func ts(minutes int) time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func tsPtr(minutes int) *time.Time {
	v := ts(minutes)
	return &v
}

func TestMergeLibrariesTakesMaxPlaytime(t *testing.T) {
	local := []Game{{ID: "a", Title: "Local", Playtime: 100, DateAdded: ts(0)}}
	remote := []Game{{ID: "a", Title: "Remote", Playtime: 250, DateAdded: ts(0)}}

	merged := MergeLibraries(local, remote)
	if len(merged) != 1 {
		t.Fatalf("expected one record, got %d", len(merged))
	}
	if merged[0].Playtime != 250 {
		t.Fatalf("expected playtime 250, got %d", merged[0].Playtime)
	}
}

func TestMergeLibrariesUnion(t *testing.T) {
	merged := MergeLibraries([]Game{{ID: "a"}}, nil)
	if len(merged) != 1 || merged[0].ID != "a" {
		t.Fatalf("local-only record lost: %#v", merged)
	}

	merged = MergeLibraries(nil, []Game{{ID: "b"}})
	if len(merged) != 1 || merged[0].ID != "b" {
		t.Fatalf("remote-only record lost: %#v", merged)
	}

	merged = MergeLibraries([]Game{{ID: "c"}, {ID: "a"}}, []Game{{ID: "b"}})
	if len(merged) != 3 || merged[0].ID != "a" || merged[1].ID != "b" || merged[2].ID != "c" {
		t.Fatalf("expected sorted union a,b,c, got %#v", merged)
	}
}

func TestMergeLibrariesRecencyPicksFields(t *testing.T) {
	tests := []struct {
		name      string
		local     Game
		remote    Game
		wantTitle string
		wantPlay  int64
	}{
		{
			name:      "remote played later",
			local:     Game{ID: "a", Title: "local", Playtime: 500, LastPlayed: tsPtr(10), DateAdded: ts(0)},
			remote:    Game{ID: "a", Title: "remote", Playtime: 90, LastPlayed: tsPtr(20), DateAdded: ts(0)},
			wantTitle: "remote",
			wantPlay:  500,
		},
		{
			name:      "local played later",
			local:     Game{ID: "a", Title: "local", Playtime: 10, LastPlayed: tsPtr(30), DateAdded: ts(0)},
			remote:    Game{ID: "a", Title: "remote", Playtime: 40, LastPlayed: tsPtr(20), DateAdded: ts(0)},
			wantTitle: "local",
			wantPlay:  40,
		},
		{
			name:      "falls back to date added",
			local:     Game{ID: "a", Title: "local", DateAdded: ts(5)},
			remote:    Game{ID: "a", Title: "remote", DateAdded: ts(6)},
			wantTitle: "remote",
		},
		{
			name:      "last played beats older date added",
			local:     Game{ID: "a", Title: "local", LastPlayed: tsPtr(50), DateAdded: ts(0)},
			remote:    Game{ID: "a", Title: "remote", DateAdded: ts(40)},
			wantTitle: "local",
		},
		{
			name:      "local wins exact ties",
			local:     Game{ID: "a", Title: "local", Playtime: 1, LastPlayed: tsPtr(10), DateAdded: ts(0)},
			remote:    Game{ID: "a", Title: "remote", Playtime: 2, LastPlayed: tsPtr(10), DateAdded: ts(0)},
			wantTitle: "local",
			wantPlay:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeLibraries([]Game{tt.local}, []Game{tt.remote})
			if len(merged) != 1 {
				t.Fatalf("expected one record, got %d", len(merged))
			}
			if merged[0].Title != tt.wantTitle {
				t.Fatalf("title = %q, want %q", merged[0].Title, tt.wantTitle)
			}
			if merged[0].Playtime != tt.wantPlay {
				t.Fatalf("playtime = %d, want %d", merged[0].Playtime, tt.wantPlay)
			}
		})
	}
}

func TestMergeLibrariesPlaytimeIsOrderIndependent(t *testing.T) {
	a := []Game{{ID: "x", Playtime: 30, LastPlayed: tsPtr(1)}}
	b := []Game{{ID: "x", Playtime: 70, LastPlayed: tsPtr(2)}}
	if MergeLibraries(a, b)[0].Playtime != MergeLibraries(b, a)[0].Playtime {
		t.Fatal("playtime depends on argument order")
	}
}

func TestMergeLibrariesDoesNotAliasInputs(t *testing.T) {
	local := []Game{{ID: "a", Tags: []string{"rpg"}}}
	merged := MergeLibraries(local, nil)
	merged[0].Tags[0] = "changed"
	if local[0].Tags[0] != "rpg" {
		t.Fatal("merge result shares slices with input")
	}
}

func TestSameCollection(t *testing.T) {
	a := []Game{{ID: "1", Title: "One", DateAdded: ts(0)}, {ID: "2", Title: "Two", DateAdded: ts(0)}}
	b := []Game{{ID: "2", Title: "Two", DateAdded: ts(0)}, {ID: "1", Title: "One", DateAdded: ts(0)}}
	if !SameCollection(a, b) {
		t.Fatal("expected order-insensitive equality")
	}
	b[0].Playtime = 5
	if SameCollection(a, b) {
		t.Fatal("expected difference after playtime change")
	}
}
