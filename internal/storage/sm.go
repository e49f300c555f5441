package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

var ErrPageNotFound = errors.New("storage: page not found")

// FileSet addresses the segment chain of one relation (heap or index).
// Implementations must be comparable by Key: the buffer pool tags
// frames with it.
type FileSet interface {
	OpenSegment(segNo int32) (afero.File, error)
	Key() string
}

var _ FileSet = (*LocalFileSet)(nil)

// LocalFileSet is a directory + base name on an afero filesystem.
// Segments are stored as: Base, Base.1, Base.2, ...
//
// With afero.NewOsFs this is durable on-disk storage; with
// afero.NewMemMapFs the very same code path is the in-memory store.
type LocalFileSet struct {
	FS   afero.Fs
	Dir  string
	Base string
}

func (lfs LocalFileSet) Key() string {
	return filepath.Join(lfs.Dir, lfs.Base)
}

func (lfs LocalFileSet) OpenSegment(segNo int32) (afero.File, error) {
	name := lfs.Base
	if segNo > 0 {
		name = fmt.Sprintf("%s.%d", lfs.Base, segNo)
	}
	path := filepath.Join(lfs.Dir, name)
	if err := lfs.FS.MkdirAll(lfs.Dir, FileMode0755); err != nil {
		return nil, err
	}
	// RDWR | CREATE (no truncate)
	return lfs.FS.OpenFile(path, os.O_RDWR|os.O_CREATE, FileMode0644)
}

// RemoveAllSegments deletes every segment file of the relation.
func RemoveAllSegments(lfs LocalFileSet) error {
	for segNo := int32(0); ; segNo++ {
		name := lfs.Base
		if segNo > 0 {
			name = fmt.Sprintf("%s.%d", lfs.Base, segNo)
		}
		path := filepath.Join(lfs.Dir, name)
		if _, err := lfs.FS.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if err := lfs.FS.Remove(path); err != nil {
			return err
		}
	}
}

// StorageManager maps a logical PageID -> (segment, offset) and moves
// whole pages between disk and memory. It is stateless; all identity
// lives in the FileSet.
type StorageManager struct{}

func NewStorageManager() *StorageManager {
	return &StorageManager{}
}

func (sm *StorageManager) locate(pageID PageID) (segNo int32, offset int64) {
	segNo = int32(pageID / MaxPagePerSegment)
	pageInSeg := int64(pageID % MaxPagePerSegment)
	return segNo, pageInSeg * PageSize
}

// ReadPage reads exactly one page (PageSize bytes) into dst. If the
// underlying segment is shorter than offset+PageSize the remainder is
// zero-filled, so sparse pages read back as uninitialized blocks.
func (sm *StorageManager) ReadPage(fs FileSet, pageID PageID, dst []byte) error {
	if len(dst) != PageSize {
		return ErrWrongSize
	}
	segNo, off := sm.locate(pageID)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return fmt.Errorf("storage: open segment %d: %w", segNo, err)
	}
	defer f.Close()

	n, err := f.ReadAt(dst, off)
	// Short segments are legal: os returns io.EOF at the boundary,
	// afero's MemMapFs returns io.ErrUnexpectedEOF for offsets strictly
	// past the end. Both mean "no bytes here yet", so zero-fill.
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("storage: read page %d: %w", pageID, err)
	}
	clear(dst[n:])
	return nil
}

// WritePage writes exactly one page (PageSize bytes) at the location
// computed from pageID.
func (sm *StorageManager) WritePage(fs FileSet, pageID PageID, src []byte) error {
	if len(src) != PageSize {
		return ErrWrongSize
	}
	segNo, off := sm.locate(pageID)
	f, err := fs.OpenSegment(segNo)
	if err != nil {
		return fmt.Errorf("storage: open segment %d: %w", segNo, err)
	}
	defer f.Close()

	n, err := f.WriteAt(src, off)
	if err != nil {
		return fmt.Errorf("storage: write page %d: %w", pageID, err)
	}
	if n != PageSize {
		return io.ErrShortWrite
	}
	return nil
}

// LoadPage reads a page into a fresh buffer and wraps it. All-zero
// bytes are returned as-is (IsUninitialized); initializing the header
// is the caller's decision because only it knows the page type.
func (sm *StorageManager) LoadPage(fs FileSet, pageID PageID) (*Page, error) {
	buf := make([]byte, PageSize)
	if err := sm.ReadPage(fs, pageID, buf); err != nil {
		return nil, err
	}
	return &Page{ID: pageID, Buf: buf}, nil
}

// SavePage writes the in-memory page back to its slot on disk.
func (sm *StorageManager) SavePage(fs FileSet, p *Page) error {
	if p == nil || len(p.Buf) != PageSize {
		return ErrWrongSize
	}
	return sm.WritePage(fs, p.ID, p.Buf)
}

// CountPages computes the total page count of a relation by walking
// its segment chain. Used to seed the page allocator.
func (sm *StorageManager) CountPages(fs FileSet) (uint32, error) {
	lfs, ok := fs.(LocalFileSet)
	if !ok {
		return 0, fmt.Errorf("storage: CountPages requires LocalFileSet")
	}

	var total uint32
	for segNo := int32(0); ; segNo++ {
		name := lfs.Base
		if segNo > 0 {
			name = fmt.Sprintf("%s.%d", lfs.Base, segNo)
		}
		info, err := lfs.FS.Stat(filepath.Join(lfs.Dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				break
			}
			return 0, err
		}
		size := info.Size()
		if size <= 0 {
			continue
		}
		total += uint32(size / int64(PageSize))
	}
	return total, nil
}
