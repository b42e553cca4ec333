package evolution

import (
	"context"
	"io"
)

// Store is the interface for the evolution history backend.
// Implementations: MemStore (default), KuzuStore (persistent, cgo).
// All history access goes through this interface.
type Store interface {
	io.Closer

	// Schema setup, called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Write operations. Callers serialize writes per file path.
	PutEvolution(ctx context.Context, ev *FileEvolution) error
	PutSnapshot(ctx context.Context, filePath string, snap *TaskSnapshot) error
	RemoveTask(ctx context.Context, taskID string) error
	RemoveEvolution(ctx context.Context, filePath string) error

	// Read operations.
	GetEvolution(ctx context.Context, filePath string) (*FileEvolution, error)
	ListEvolutions(ctx context.Context) ([]*FileEvolution, error)
}
