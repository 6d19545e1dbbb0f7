// Package workspace provides isolated, request-scoped scratch directories.
// Each conversion gets its own uniquely named directory under a shared root,
// and the directory is removed when the conversion ends.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// VideoFileName is the name of the downloaded source video inside a workspace.
const VideoFileName = "video.mp4"

// Static errors for workspace operations.
var (
	// ErrRootNotWritable is returned when the workspace root cannot hold new directories.
	ErrRootNotWritable = errors.New("workspace: root is not writable")
	// ErrCreate is returned when a workspace directory cannot be created.
	ErrCreate = errors.New("workspace: create directory failed")
)

// Workspace is an exclusively owned scratch directory for one conversion.
type Workspace struct {
	// ID is the random token naming the directory.
	ID string
	// Dir is the absolute path of the directory.
	Dir string

	once sync.Once
	err  error
}

// Path returns the path of name inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.Dir, name)
}

// VideoPath returns where the source video is stored.
func (w *Workspace) VideoPath() string {
	return w.Path(VideoFileName)
}

// Manager allocates and removes workspaces under a root directory.
// It is safe for concurrent use; the root is the only shared state.
type Manager struct {
	root   string
	logger *slog.Logger
	newID  func() string
}

// NewManager creates a Manager rooted at root.
// If root is empty, a "video2pdf" directory under os.TempDir() is used.
// The root is created if it doesn't exist.
func NewManager(root string, logger *slog.Logger) (*Manager, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "video2pdf")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}

	return &Manager{
		root:   abs,
		logger: logger,
		newID:  uuid.NewString,
	}, nil
}

// Root returns the workspace root directory.
func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a fresh workspace. The directory is created with os.Mkdir,
// so an existing directory with the same name is an error rather than shared.
func (m *Manager) Acquire(ctx context.Context) (*Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	info, err := os.Stat(m.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRootNotWritable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotWritable, m.root)
	}

	id := m.newID()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0700); err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %w", ErrRootNotWritable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrCreate, err)
	}

	m.logger.Debug("workspace acquired",
		slog.String("workspace_id", id),
		slog.String("dir", dir),
	)

	return &Workspace{ID: id, Dir: dir}, nil
}

// Release removes the workspace directory tree. Failures are logged and
// returned; calling Release again on the same workspace returns the first
// result without touching the filesystem.
func (m *Manager) Release(ws *Workspace) error {
	if ws == nil {
		return nil
	}

	ws.once.Do(func() {
		if err := os.RemoveAll(ws.Dir); err != nil {
			ws.err = fmt.Errorf("remove workspace %s: %w", ws.ID, err)
			m.logger.Error("failed to release workspace",
				slog.String("workspace_id", ws.ID),
				slog.String("dir", ws.Dir),
				slog.String("error", err.Error()),
			)
			return
		}
		m.logger.Debug("workspace released",
			slog.String("workspace_id", ws.ID),
		)
	})

	return ws.err
}

// Run acquires a workspace, calls fn with it and releases it on every exit
// path, including a panic in fn. The release error never replaces fn's
// result; it is only logged.
func (m *Manager) Run(ctx context.Context, fn func(ws *Workspace) error) error {
	ws, err := m.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = m.Release(ws) }()

	return fn(ws)
}
