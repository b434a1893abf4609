/*
Package objectstore implements the object storage collaborator.

PURPOSE:
  Stores opaque artifact bytes (expense receipts, transfer proofs) and
  returns a URL for later reference. Local is a disk-backed implementation;
  a cloud bucket would implement the same one-method interface.
*/
package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/warp/custody-engine/approval"
)

// Local writes uploads under a root directory and returns URLs below a base
// path (e.g. "/uploads").
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the root directory if needed.
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &approval.CollaboratorError{Op: "objectstore.init", Err: err}
	}
	return &Local{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Upload writes data to a unique file derived from path and returns the URL
// it will be served from. The caller's path is only a naming hint; it is
// flattened so uploads can never escape the root.
func (l *Local) Upload(_ context.Context, data []byte, path string) (string, error) {
	name := sanitize(path)
	if name == "" {
		name = "artifact"
	}
	name = uuid.NewString() + "-" + name

	if err := os.WriteFile(filepath.Join(l.root, name), data, 0o644); err != nil {
		return "", &approval.CollaboratorError{Op: "objectstore.upload", Err: err}
	}
	return fmt.Sprintf("%s/%s", l.baseURL, name), nil
}

// Root returns the directory uploads are written to, for file serving.
func (l *Local) Root() string {
	return l.root
}

func sanitize(path string) string {
	name := filepath.Base(strings.ReplaceAll(path, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
