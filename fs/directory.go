package fs

import (
	"log/slog"
)

// Dirent is the public, read-only view of a directory listing row.
type Dirent struct {
	Name    string
	Size    uint32
	IniBlock uint16
}

// Create adds an empty file named name to the root directory. Grounded on
// original_source/libfs/fs.c:fs_create.
func (v *Volume) Create(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	v.trace("create", slog.String("name", name))
	if err := validateName(name); err != nil {
		return err
	}
	for i := range v.dir {
		if !v.dir[i].free() && v.dir[i].filename() == name {
			return ErrExists
		}
	}
	slot := -1
	for i := range v.dir {
		if v.dir[i].free() {
			slot = i
			break
		}
	}
	if slot == -1 {
		return ErrDirectoryFull
	}
	var e dirEntry
	copy(e.name[:], name)
	e.size = 0
	e.iniBlk = FatEOC
	v.dir[slot] = e
	return nil
}

// Delete removes name, first freeing its FAT chain. Refuses while any
// descriptor has the file open (§4.2).
func (v *Volume) Delete(name string) error {
	if !v.mounted {
		return ErrNotMounted
	}
	v.trace("delete", slog.String("name", name))
	idx, err := v.findEntry(name)
	if err != nil {
		return err
	}
	for i := range v.ofiles {
		if v.ofiles[i].entry == idx {
			return ErrBusy
		}
	}
	cur := v.dir[idx].iniBlk
	for cur != FatEOC {
		next := v.fat[cur]
		v.fat[cur] = 0
		cur = next
	}
	v.dir[idx] = dirEntry{}
	return nil
}

// Ls returns the non-empty directory entries in slot order.
func (v *Volume) Ls() ([]Dirent, error) {
	if !v.mounted {
		return nil, ErrNotMounted
	}
	var out []Dirent
	for i := range v.dir {
		if !v.dir[i].free() {
			out = append(out, Dirent{
				Name:     v.dir[i].filename(),
				Size:     v.dir[i].size,
				IniBlock: v.dir[i].iniBlk,
			})
		}
	}
	return out, nil
}

func (v *Volume) findEntry(name string) (int, error) {
	for i := range v.dir {
		if !v.dir[i].free() && v.dir[i].filename() == name {
			return i, nil
		}
	}
	return -1, ErrNotFound
}

func validateName(name string) error {
	if len(name) == 0 || len(name) >= FilenameLen {
		return ErrInvalidName
	}
	return nil
}
