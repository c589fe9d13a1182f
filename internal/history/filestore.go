// Package history persists per-room message logs as human-inspectable JSON
// files, one file per room, rewritten in full on every append.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/parlorchat/parlor/internal/domain"
)

// FileStore keeps one <dir>/<room>.json artifact per room, holding the
// ordered array of formatted chat lines.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	log.Info().Str("module", "history").Str("dir", dir).Msg("history store ready")
	return &FileStore{dir: dir}, nil
}

// Load returns the persisted history for the room, oldest line first.
// A missing file is the normal new-room case and yields an empty history.
func (s *FileStore) Load(room domain.RoomName) ([]string, error) {
	data, err := os.ReadFile(s.path(room))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history for %q: %w", room, err)
	}
	var history []string
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decode history for %q: %w", room, err)
	}
	return history, nil
}

// Save rewrites the room's artifact with the full history. The write goes
// through a temp file and an atomic rename so a crash mid-save never leaves
// a truncated file behind.
func (s *FileStore) Save(room domain.RoomName, history []string) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history for %q: %w", room, err)
	}
	path := s.path(room)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history for %q: %w", room, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish history for %q: %w", room, err)
	}
	return nil
}

func (s *FileStore) path(room domain.RoomName) string {
	return filepath.Join(s.dir, sanitize(string(room))+".json")
}

// sanitize maps a room name onto a safe file name so a name like "../x"
// cannot escape the history directory.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "_"
	}
	return out
}
