package textutil

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"scene release filename", "Cyberpunk.2077.v2.1.GOTY.Edition-CODEX", "Cyberpunk 2077"},
		{"plain title untouched", "Hollow Knight", "Hollow Knight"},
		{"repack brackets", "Hitman (2016) [FitGirl Repack]", "Hitman"},
		{"bracketed edition", "The Witcher 3 (Game of the Year Edition)", "The Witcher 3"},
		{"trailing edition phrase", "Skyrim Special Edition", "Skyrim"},
		{"build token", "Valheim Build 12345 [P2P]", "Valheim"},
		{"update token", "Terraria Update 1.4", "Terraria"},
		{"dotted version", "Stardew Valley 1.5.6", "Stardew Valley"},
		{"underscore separators", "Dead_Cells_v1.2-DODI", "Dead Cells"},
		{"group token case insensitive", "Hades codex", "Hades"},
		{"non edition bracket dropped", "Doom (Classic) [Remastered]", "Doom"},
		{"punctuation kept inside", "S.T.A.L.K.E.R. Shadow of Chernobyl", "S.T.A.L.K.E.R. Shadow of Chernobyl"},
		{"numbers in titles kept", "Half-Life 2", "Half-Life 2"},
		{"whitespace collapsed", "  Dark   Souls  III  ", "Dark Souls III"},
		{"only noise", "[CODEX]", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Fatalf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIsIdempotent(t *testing.T) {
	inputs := []string{
		"Cyberpunk.2077.v2.1.GOTY.Edition-CODEX",
		"Gold Edition (bonus)",
		"Mass Effect Legendary Edition [v2.0.0.48602]",
		"Portal 2 (Deluxe) (Steam)",
		"Elden.Ring.Build.10.Update.1-RUNE",
		"Baldur's Gate 3 [DODI Repack]",
		"Control Ultimate Edition",
		"No Man's Sky",
		"((nested) brackets) Game",
		"v1.0",
	}
	for _, in := range inputs {
		once := NormalizeTitle(in)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
