package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Manager hands out scratch directory trees for in-flight uploads. Each
// handle is owned by exactly one request and removed when the request ends,
// whatever its outcome.
type Manager struct {
	root string
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// Handle is the scratch tree for one upload. ThumbDir stages the thumbnail,
// OutDir holds the temporary source video and everything the encoder
// writes (playlist plus raw segments).
type Handle struct {
	Dir      string
	ThumbDir string
	OutDir   string
}

// Acquire creates a fresh directory tree. The UUIDv7 component keeps
// concurrent uploads from ever colliding. A creation failure aborts the
// caller's request before anything has been uploaded.
func (m *Manager) Acquire() (*Handle, error) {
	dir := filepath.Join(m.root, uuid.Must(uuid.NewV7()).String())
	h := &Handle{
		Dir:      dir,
		ThumbDir: filepath.Join(dir, "thumb"),
		OutDir:   filepath.Join(dir, "out"),
	}
	for _, d := range []string{h.ThumbDir, h.OutDir} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return nil, fmt.Errorf("create workspace dir %s: %w", d, err)
		}
	}
	log.Debugln("acquired workspace", dir)
	return h, nil
}

// Release removes everything under the handle, files before the
// directories containing them. It never fails the caller: a missing tree
// counts as already clean and any other error is logged and swallowed, so
// cleanup can't mask the request's real outcome.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	err := os.RemoveAll(h.Dir)
	switch {
	case err == nil:
		log.Debugln("released workspace", h.Dir)
	case os.IsNotExist(err):
		log.Debugln("workspace already clean", h.Dir)
	default:
		log.Warnf("failed to release workspace %s: %v", h.Dir, err)
	}
}
