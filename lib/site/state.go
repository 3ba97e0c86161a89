package site

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pthm/hxsite/lib/logfields"
)

// loadState restores the dependency graph of the previous run. A missing
// or unreadable state file only costs precision on the first rebuild.
func (s *Site) loadState() {
	file := s.cfg.StatePath()
	if file == "" {
		return
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("Failed to read build state", logfields.Path(file), logfields.Error(err))
		}
		return
	}
	if err := s.plugin.Tracker().UnmarshalState(s.encoder, data); err != nil {
		s.logger.Warn("Ignoring build state", logfields.Path(file), logfields.Error(err))
	}
}

func (s *Site) saveState(ctx context.Context) {
	file := s.cfg.StatePath()
	if file == "" {
		return
	}
	data, err := s.plugin.Tracker().MarshalState(s.encoder)
	if err == nil {
		err = os.MkdirAll(filepath.Dir(file), 0o755)
	}
	if err == nil {
		err = writeFileAtomic(file, data)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to save build state", logfields.Path(file), logfields.Error(err))
	}
}

func writeFileAtomic(file string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(file), filepath.Base(file)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), file)
}
