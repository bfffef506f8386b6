package library

import "orbit/internal/services"

// ErrNotFound is returned when a game id does not exist in the store.
var ErrNotFound = services.ErrNotFound
