package btree

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/petreldb/petrel/internal/storage"
)

const (
	metaFileSuffix = ".btree.meta.json"
	metaVersion    = 1
)

// diskMeta is the JSON sidecar persisted next to the index segments:
// <Dir>/<Base>.btree.meta.json. It carries the tree shape that the
// pages themselves cannot express.
type diskMeta struct {
	Version int            `json:"version"`
	Root    storage.PageID `json:"root"`
	Height  int            `json:"height"`
}

// MetaPath returns the sidecar path for an index stored in lfs.
func MetaPath(lfs storage.LocalFileSet) string {
	return filepath.Join(lfs.Dir, lfs.Base+metaFileSuffix)
}

func metaPathForFileSet(fs storage.FileSet) (afero.Fs, string, bool) {
	lfs, ok := fs.(storage.LocalFileSet)
	if !ok {
		return nil, "", false
	}
	return lfs.FS, filepath.Join(lfs.Dir, lfs.Base+metaFileSuffix), true
}

func (t *Tree) loadMeta() (diskMeta, bool, error) {
	if t.metaFS == nil || t.metaPath == "" {
		return diskMeta{}, false, nil
	}

	data, err := afero.ReadFile(t.metaFS, t.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return diskMeta{}, false, nil
		}
		return diskMeta{}, false, err
	}

	var m diskMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return diskMeta{}, false, err
	}
	if m.Version <= 0 {
		m.Version = metaVersion
	}
	return m, true, nil
}

func (t *Tree) saveMeta() error {
	if t.metaFS == nil || t.metaPath == "" {
		return nil
	}

	m := diskMeta{
		Version: metaVersion,
		Root:    t.root,
		Height:  t.height,
	}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}

	if err := t.metaFS.MkdirAll(filepath.Dir(t.metaPath), storage.FileMode0755); err != nil {
		return err
	}
	if err := afero.WriteFile(t.metaFS, t.metaPath, data, storage.FileMode0644); err != nil {
		return err
	}

	slog.Debug("btree.meta.saved",
		"path", t.metaPath,
		"root", m.Root,
		"height", m.Height,
	)
	return nil
}
