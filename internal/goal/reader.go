package goal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/thiagokokada/gitviz-go/internal/graph"
)

// GraphReader builds the graph of the repository rooted at a path.
type GraphReader interface {
	ReadGraph(ctx context.Context, path string) (graph.Graph, error)
}

// Reader builds the goal graph by swapping the goal directory into place.
type Reader struct {
	dir    string
	graphs GraphReader

	// mu keeps swaps of this process from interleaving.
	mu sync.Mutex
}

func NewReader(dir string, graphs GraphReader) *Reader {
	if dir == "" {
		dir = DefaultDir
	}
	return &Reader{dir: dir, graphs: graphs}
}

func (r *Reader) Dir() string { return r.dir }

// Available reports whether root holds a goal directory.
func (r *Reader) Available(root string) bool {
	info, err := os.Stat(filepath.Join(root, r.dir))
	return err == nil && info.IsDir()
}

// Recover moves the live metadata directory back into place if a previous
// swap left it parked. It must run before the live repository is read.
func (r *Reader) Recover(root string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Recover(root, r.dir)
}

// ReadGoal returns the goal graph of the workspace at root. Any failure is
// reported as ErrGoalUnavailable.
func (r *Reader) ReadGoal(ctx context.Context, root string) (*graph.Graph, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var g graph.Graph
	err := Swap(root, r.dir, func() error {
		var err error
		g, err = r.graphs.ReadGraph(ctx, root)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrGoalUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrGoalUnavailable, err)
	}
	return &g, nil
}
