package library

import "context"

// ChangeNotifier is told after a local edit so the change can be pushed to
// the cloud copy.
type ChangeNotifier interface {
	LibraryChanged(ctx context.Context)
}
