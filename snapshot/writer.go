package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
)

const fileName = "snapshot.bin"

type Writer struct {
	Dir string
}

// Write persists the snapshot atomically: encode to a temp file, fsync,
// rename over the previous snapshot.
func (w *Writer) Write(s *Snapshot) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	tmp := filepath.Join(w.Dir, fileName+".tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(s); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, filepath.Join(w.Dir, fileName))
}
