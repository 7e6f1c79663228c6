// Package blockdev provides BlockDevice implementations for minios/fs.
// The block device contract itself is an external collaborator (spec §6.1)
// that fs.Volume only ever calls through the fs.BlockDevice interface;
// this package supplies the two concrete instances this module needs to
// actually run: a real file on disk, and an in-memory fixture for tests.
package blockdev

import (
	"errors"
	"os"

	"minios/fs"
)

var (
	ErrNotOpen   = errors.New("blockdev: device not open")
	ErrOutOfRange = errors.New("blockdev: block index out of range")
	ErrBadBuffer  = errors.New("blockdev: buffer must be exactly one block")
)

// File is a BlockDevice backed by a regular file on disk, one fs.BlockSize
// chunk per block index. Grounded on perkeep.org's localdisk blobserver,
// which treats a flat file/directory tree as block-indexed storage.
type File struct {
	f     *os.File
	count uint16
}

var _ fs.BlockDevice = (*File)(nil)

// CreateImage creates (or truncates) a new image file of the given block
// count, ready for fs.Format.
func CreateImage(path string, blocks uint16) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Truncate(int64(blocks) * fs.BlockSize)
}

func (d *File) Open(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if info.Size()%fs.BlockSize != 0 {
		f.Close()
		return errors.New("blockdev: image size not a multiple of block size")
	}
	d.f = f
	d.count = uint16(info.Size() / fs.BlockSize)
	return nil
}

func (d *File) Close() error {
	if d.f == nil {
		return ErrNotOpen
	}
	err := d.f.Close()
	d.f = nil
	return err
}

func (d *File) Count() (uint16, error) {
	if d.f == nil {
		return 0, ErrNotOpen
	}
	return d.count, nil
}

func (d *File) ReadBlock(index uint16, dst []byte) error {
	if d.f == nil {
		return ErrNotOpen
	}
	if len(dst) != fs.BlockSize {
		return ErrBadBuffer
	}
	if index >= d.count {
		return ErrOutOfRange
	}
	_, err := d.f.ReadAt(dst, int64(index)*fs.BlockSize)
	return err
}

func (d *File) WriteBlock(index uint16, src []byte) error {
	if d.f == nil {
		return ErrNotOpen
	}
	if len(src) != fs.BlockSize {
		return ErrBadBuffer
	}
	if index >= d.count {
		return ErrOutOfRange
	}
	_, err := d.f.WriteAt(src, int64(index)*fs.BlockSize)
	return err
}

// Memory is a BlockDevice backed by a plain byte slice, grounded on
// soypat/fat's BytesBlocks test fixture (fat_test.go). Open and Close only
// toggle whether block I/O is allowed; the contents survive a Close and a
// later Open, matching a RAM disk's semantics.
type Memory struct {
	buf   []byte
	open  bool
	count uint16
}

var _ fs.BlockDevice = (*Memory)(nil)

// NewMemory returns a Memory device of the given block count, not yet
// opened. Call Open before passing it to fs.Format; fs.Volume.Mount opens
// it itself.
func NewMemory(blocks uint16) *Memory {
	return &Memory{buf: make([]byte, int(blocks)*fs.BlockSize), count: blocks}
}

func (m *Memory) Open(path string) error {
	m.open = true
	return nil
}

func (m *Memory) Close() error {
	if !m.open {
		return ErrNotOpen
	}
	m.open = false
	return nil
}

func (m *Memory) Count() (uint16, error) {
	if !m.open {
		return 0, ErrNotOpen
	}
	return m.count, nil
}

func (m *Memory) ReadBlock(index uint16, dst []byte) error {
	if !m.open {
		return ErrNotOpen
	}
	if len(dst) != fs.BlockSize {
		return ErrBadBuffer
	}
	if index >= m.count {
		return ErrOutOfRange
	}
	off := int(index) * fs.BlockSize
	copy(dst, m.buf[off:off+fs.BlockSize])
	return nil
}

func (m *Memory) WriteBlock(index uint16, src []byte) error {
	if !m.open {
		return ErrNotOpen
	}
	if len(src) != fs.BlockSize {
		return ErrBadBuffer
	}
	if index >= m.count {
		return ErrOutOfRange
	}
	off := int(index) * fs.BlockSize
	copy(m.buf[off:off+fs.BlockSize], src)
	return nil
}
