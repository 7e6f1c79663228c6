package fs

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Mount opens the block device, reads and validates the superblock, loads
// the FAT and root directory into memory, and resets the open file table.
// Grounded on original_source/libfs/fs.c:fs_mount and on soypat/fat's
// mount_volume (single disk-window read per structure, signature and block
// count validation before trusting the rest of the image).
func (v *Volume) Mount(dev BlockDevice, imagePath string) error {
	if v.mounted {
		return ErrAlreadyMounted
	}
	v.trace("mount", slog.String("image", imagePath))
	if err := dev.Open(imagePath); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}

	var blk [BlockSize]byte
	if err := dev.ReadBlock(0, blk[:]); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	var sb superblock
	if !sb.unmarshal(blk[:]) {
		dev.Close()
		v.logerror("mount: bad signature")
		return ErrBadImage
	}
	count, err := dev.Count()
	if err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	if sb.totalBlocks != count {
		dev.Close()
		v.logerror("mount: block count mismatch", slog.Int("sb", int(sb.totalBlocks)), slog.Int("dev", int(count)))
		return ErrBadImage
	}

	fat := make([]uint16, sb.totalDataBlk)
	fatBuf := make([]byte, int(sb.totalFATBlk)*BlockSize)
	for i := 0; i < int(sb.totalFATBlk); i++ {
		if err := dev.ReadBlock(uint16(1+i), fatBuf[i*BlockSize:(i+1)*BlockSize]); err != nil {
			dev.Close()
			return fmt.Errorf("%w: %v", ErrIOError, err)
		}
	}
	for i := range fat {
		fat[i] = binary.LittleEndian.Uint16(fatBuf[i*fatEntrySize:])
	}

	if err := dev.ReadBlock(sb.rootDirIndex, blk[:]); err != nil {
		dev.Close()
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	var dir [FileMaxCount]dirEntry
	for i := range dir {
		dir[i].unmarshal(blk[i*dirEntrySize : (i+1)*dirEntrySize])
	}

	v.dev = dev
	v.sb = sb
	v.fat = fat
	v.dir = dir
	for i := range v.ofiles {
		v.ofiles[i] = openFile{entry: -1}
	}
	v.mounted = true
	return nil
}

// Unmount writes the superblock, FAT and directory back to disk in that
// order, then closes the device. Per §9 Open Question #1 this
// implementation rejects unmount while descriptors remain open, rather
// than silently flushing.
func (v *Volume) Unmount() error {
	if !v.mounted {
		return ErrNotMounted
	}
	for i := range v.ofiles {
		if v.ofiles[i].entry != -1 {
			return ErrOpenFilesOutstanding
		}
	}
	v.trace("unmount")

	var blk [BlockSize]byte
	v.sb.marshal(blk[:])
	if err := v.dev.WriteBlock(0, blk[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}

	fatBuf := make([]byte, int(v.sb.totalFATBlk)*BlockSize)
	for i, e := range v.fat {
		binary.LittleEndian.PutUint16(fatBuf[i*fatEntrySize:], e)
	}
	for i := 0; i < int(v.sb.totalFATBlk); i++ {
		if err := v.dev.WriteBlock(uint16(1+i), fatBuf[i*BlockSize:(i+1)*BlockSize]); err != nil {
			return fmt.Errorf("%w: %v", ErrIOError, err)
		}
	}

	var dirBlk [BlockSize]byte
	for i := range v.dir {
		v.dir[i].marshal(dirBlk[i*dirEntrySize : (i+1)*dirEntrySize])
	}
	if err := v.dev.WriteBlock(v.sb.rootDirIndex, dirBlk[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}

	if err := v.dev.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	v.dev = nil
	v.fat = nil
	v.mounted = false
	return nil
}

// Info reports mount totals in the format used by the original fs_info.
func (v *Volume) Info() (string, error) {
	if !v.mounted {
		return "", ErrNotMounted
	}
	return fmt.Sprintf(
		"FS Info:\ntotal_blk_count=%d\nfat_blk_count=%d\nrdir_blk=%d\ndata_blk=%d\ndata_blk_count=%d\nfat_free_ratio=%d/%d\nrdir_free_ratio=%d/%d\n",
		v.sb.totalBlocks, v.sb.totalFATBlk, v.sb.rootDirIndex, v.sb.dataIndex, v.sb.totalDataBlk,
		v.fatFree(), v.sb.totalDataBlk, v.dirFree(), FileMaxCount,
	), nil
}

func (v *Volume) fatFree() int {
	n := 0
	for _, e := range v.fat {
		if e == 0 {
			n++
		}
	}
	return n
}

func (v *Volume) dirFree() int {
	n := 0
	for i := range v.dir {
		if v.dir[i].free() {
			n++
		}
	}
	return n
}
