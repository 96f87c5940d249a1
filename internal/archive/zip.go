// Package archive packages harvested attachments into zip files in the
// run's scratch directory.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
)

// ErrWrite reports a failure while writing an archive to the working area,
// typically scratch-space exhaustion. Fatal for that archive only.
var ErrWrite = errors.New("archive: write failed")

// Entry is one named blob. Names are attachment identities; the caller
// guarantees they are distinct, no deduplication happens here.
type Entry struct {
	Name string
	Data []byte
}

// Build writes a deflate-compressed zip containing exactly the given entries,
// in order, at path.
func Build(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, path, err)
	}

	w := zip.NewWriter(f)
	for _, entry := range entries {
		dst, err := w.Create(entry.Name)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: entry %s: %v", ErrWrite, entry.Name, err)
		}
		if _, err := dst.Write(entry.Data); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: entry %s: %v", ErrWrite, entry.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: finalize %s: %v", ErrWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWrite, path, err)
	}
	return nil
}
