package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Stager owns the on-disk directory where uploads sit while they are parsed.
type Stager struct {
	dir string
}

// NewStager creates dir when missing.
func NewStager(dir string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Stager{dir: dir}, nil
}

// Path returns a fresh, collision-free location for an upload named
// originalName. The extension is preserved so the format can be detected.
func (s *Stager) Path(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(originalName, "\\", "/"))
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == 0 {
			return '_'
		}
		return r
	}, base)
	return filepath.Join(s.dir, uuid.NewString()+"-"+base)
}

// Remove deletes a staged file. A file that is already gone is not an error.
func (s *Stager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
