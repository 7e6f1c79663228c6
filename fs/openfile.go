package fs

import "log/slog"

// Open finds a free descriptor slot and binds it to name at offset 0.
// Grounded on original_source/libfs/fs.c:fs_open.
func (v *Volume) Open(name string) (int, error) {
	if !v.mounted {
		return -1, ErrNotMounted
	}
	v.trace("open", slog.String("name", name))
	idx, err := v.findEntry(name)
	if err != nil {
		return -1, err
	}
	for fd := range v.ofiles {
		if v.ofiles[fd].entry == -1 {
			v.ofiles[fd] = openFile{entry: idx, offset: 0}
			return fd, nil
		}
	}
	return -1, ErrTooManyOpen
}

// Close releases fd.
func (v *Volume) Close(fd int) error {
	of, err := v.checkFd(fd)
	if err != nil {
		return err
	}
	_ = of
	v.ofiles[fd] = openFile{entry: -1}
	return nil
}

// Stat returns the size in bytes of the file bound to fd.
func (v *Volume) Stat(fd int) (uint32, error) {
	of, err := v.checkFd(fd)
	if err != nil {
		return 0, err
	}
	return v.dir[of.entry].size, nil
}

// Lseek repositions fd's offset. offset == file size is legal (append);
// anything greater is rejected (§4.3).
func (v *Volume) Lseek(fd int, offset uint32) error {
	of, err := v.checkFd(fd)
	if err != nil {
		return err
	}
	if offset > v.dir[of.entry].size {
		return ErrInvalidArgument
	}
	v.ofiles[fd].offset = offset
	return nil
}

// checkFd validates fd's range and in-use status (§9 Open Question #3:
// fd must satisfy 0 <= fd < OpenMaxCount, not the source's off-by-one).
func (v *Volume) checkFd(fd int) (*openFile, error) {
	if !v.mounted {
		return nil, ErrNotMounted
	}
	if fd < 0 || fd >= OpenMaxCount {
		return nil, ErrBadFd
	}
	if v.ofiles[fd].entry == -1 {
		return nil, ErrBadFd
	}
	return &v.ofiles[fd], nil
}
