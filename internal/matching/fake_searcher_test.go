package matching

import (
	"context"
	"errors"
	"sync"

	"orbit/internal/rawg"
)

type fakeSearcher struct {
	mu             sync.Mutex
	results        map[string][]rawg.Game
	details        map[int64]rawg.Game
	searchErr      error
	detailErr      error
	screenshotsErr error
	moviesErr      error
	searches       []string
	// onSearch runs before each search returns, outside the lock.
	onSearch func(query string)
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results: make(map[string][]rawg.Game),
		details: make(map[int64]rawg.Game),
	}
}

func (f *fakeSearcher) SearchGames(_ context.Context, query string, _ int) (*rawg.SearchResponse, error) {
	if f.onSearch != nil {
		f.onSearch(query)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &rawg.SearchResponse{Count: len(f.results[query]), Results: f.results[query]}, nil
}

func (f *fakeSearcher) GetGame(_ context.Context, id int64) (*rawg.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	detail, ok := f.details[id]
	if !ok {
		return nil, errors.New("unknown game")
	}
	return &detail, nil
}

func (f *fakeSearcher) GetScreenshots(_ context.Context, id int64) ([]rawg.Image, error) {
	if f.screenshotsErr != nil {
		return nil, f.screenshotsErr
	}
	return []rawg.Image{{ID: 1, Image: "https://img/shot.jpg"}}, nil
}

func (f *fakeSearcher) GetMovies(_ context.Context, id int64) ([]rawg.Movie, error) {
	if f.moviesErr != nil {
		return nil, f.moviesErr
	}
	return []rawg.Movie{{ID: 1, Data: map[string]string{"max": "https://vid/max.mp4"}}}, nil
}

func (f *fakeSearcher) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

// addGame registers name as both a search hit for query and a detail record.
func (f *fakeSearcher) addGame(query string, id int64, name string) {
	f.results[query] = append(f.results[query], rawg.Game{ID: id, Name: name, RatingsCount: 100000})
	f.details[id] = rawg.Game{
		ID:             id,
		Name:           name,
		DescriptionRaw: name + " description",
		Developers:     []rawg.NamedRef{{Name: "Studio " + name}},
		Publishers:     []rawg.NamedRef{{Name: "Publisher"}},
		Genres:         []rawg.NamedRef{{Name: "Action"}},
		Released:       "2020-12-10",
	}
}
