package library

import (
	"encoding/json"
	"slices"
	"strings"
)

// MergeLibraries reconciles a local and a remote copy of the collection.
//
// Records present on only one side are kept (no delete propagation). For ids
// present on both sides the copy with the later RecencyKey supplies every
// field except Playtime; local wins exact ties. Playtime is always the max of
// both copies. The result is sorted by id.
func MergeLibraries(local, remote []Game) []Game {
	merged := make(map[string]Game, len(local)+len(remote))
	for _, game := range remote {
		merged[game.ID] = game.Clone()
	}
	for _, game := range local {
		existing, ok := merged[game.ID]
		if !ok {
			merged[game.ID] = game.Clone()
			continue
		}
		winner := game
		if existing.RecencyKey().After(game.RecencyKey()) {
			winner = existing
		}
		result := winner.Clone()
		result.Playtime = max(game.Playtime, existing.Playtime)
		merged[game.ID] = result
	}

	out := make([]Game, 0, len(merged))
	for _, game := range merged {
		out = append(out, game)
	}
	SortByID(out)
	return out
}

// SortByID orders games by id in place.
func SortByID(games []Game) {
	slices.SortFunc(games, func(a, b Game) int {
		return strings.Compare(a.ID, b.ID)
	})
}

// SameCollection reports whether two collections hold identical records,
// ignoring order.
func SameCollection(a, b []Game) bool {
	if len(a) != len(b) {
		return false
	}
	left := slices.Clone(a)
	right := slices.Clone(b)
	SortByID(left)
	SortByID(right)
	leftJSON, errLeft := json.Marshal(left)
	rightJSON, errRight := json.Marshal(right)
	if errLeft != nil || errRight != nil {
		return false
	}
	return string(leftJSON) == string(rightJSON)
}
