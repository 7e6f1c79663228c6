package fs

import (
	"fmt"
	"log/slog"
)

// Read copies up to len(buf) bytes starting at fd's current offset,
// advancing the offset by the number of bytes actually copied. A short
// read indicates EOF, not an error (§4.4).
func (v *Volume) Read(fd int, buf []byte) (int, error) {
	of, err := v.checkFd(fd)
	if err != nil {
		return 0, err
	}
	entry := &v.dir[of.entry]
	sz := entry.size
	o := of.offset
	if sz == 0 || len(buf) == 0 {
		return 0, nil
	}
	avail := sz - o
	n := len(buf)
	if uint32(n) > avail {
		n = int(avail)
	}
	if n <= 0 {
		return 0, nil
	}
	v.trace("read", slog.Int("fd", fd), slog.Int("n", n), slog.Int("offset", int(o)))

	blocks := v.chainBlocks(entry.iniBlk)
	var scratch [BlockSize]byte
	pos := 0
	for pos < n {
		blockIdx := int((o + uint32(pos)) / BlockSize)
		if blockIdx >= len(blocks) {
			break // defensive: chain shorter than file size implies corrupt image.
		}
		blk := blocks[blockIdx]
		offInBlock := int((o + uint32(pos)) % BlockSize)
		nCopy := BlockSize - offInBlock
		if nCopy > n-pos {
			nCopy = n - pos
		}
		if err := v.dev.ReadBlock(v.sb.dataIndex+blk, scratch[:]); err != nil {
			of.offset += uint32(pos)
			return pos, fmt.Errorf("%w: %v", ErrIOError, err)
		}
		copy(buf[pos:pos+nCopy], scratch[offInBlock:offInBlock+nCopy])
		pos += nCopy
	}
	of.offset += uint32(pos)
	return pos, nil
}

// Write writes len(buf) bytes at fd's current offset, extending the file
// with newly allocated FAT entries as needed (§4.5). It returns the number
// of bytes actually written, which may be less than len(buf) if the FAT is
// exhausted; the offset advances by exactly that count.
func (v *Volume) Write(fd int, buf []byte) (int, error) {
	of, err := v.checkFd(fd)
	if err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}
	entry := &v.dir[of.entry]
	o := of.offset
	sz := entry.size
	v.trace("write", slog.Int("fd", fd), slog.Int("len", len(buf)), slog.Int("offset", int(o)))

	if entry.iniBlk == FatEOC {
		return v.writeEmptyFile(entry, of, buf)
	}

	existing := v.chainBlocks(entry.iniBlk)
	curBlocks := len(existing)
	neededTotal := blocksNeeded(int(o) + len(buf))

	if neededTotal <= curBlocks {
		// Case 3: in-place overwrite, no new blocks needed.
		writeByte := len(buf)
		if err := v.patchBlocks(existing, nil, o, buf[:writeByte]); err != nil {
			return 0, err
		}
		if newSize := o + uint32(writeByte); newSize > sz {
			entry.size = newSize
		}
		of.offset += uint32(writeByte)
		return writeByte, nil
	}

	// Case 2: extend the chain.
	moreNeeded := neededTotal - curBlocks
	freeExtra := v.freeFatIndexes(moreNeeded)
	var writeByte int
	if len(freeExtra) >= moreNeeded {
		writeByte = len(buf)
	} else {
		total := (curBlocks + len(freeExtra)) * BlockSize
		avail := total - int(o)
		if avail < 0 {
			avail = 0
		}
		writeByte = avail
		if writeByte > len(buf) {
			writeByte = len(buf)
		}
	}
	if writeByte == 0 {
		return 0, nil
	}
	if len(freeExtra) > 0 {
		v.fat[existing[curBlocks-1]] = freeExtra[0]
		v.linkChain(freeExtra)
	}
	allBlocks := make([]uint16, 0, curBlocks+len(freeExtra))
	allBlocks = append(allBlocks, existing...)
	allBlocks = append(allBlocks, freeExtra...)
	newSet := make(map[uint16]bool, len(freeExtra))
	for _, b := range freeExtra {
		newSet[b] = true
	}
	if err := v.patchBlocks(allBlocks, newSet, o, buf[:writeByte]); err != nil {
		return 0, err
	}
	if newSize := o + uint32(writeByte); newSize > sz {
		entry.size = newSize
	}
	of.offset += uint32(writeByte)
	return writeByte, nil
}

func (v *Volume) writeEmptyFile(entry *dirEntry, of *openFile, buf []byte) (int, error) {
	need := blocksNeeded(len(buf))
	free := v.freeFatIndexes(need)
	var writeByte int
	if len(free) >= need {
		writeByte = len(buf)
	} else {
		writeByte = len(free) * BlockSize
	}
	if writeByte == 0 {
		return 0, nil
	}
	v.linkChain(free)
	entry.iniBlk = free[0]
	entry.size = uint32(writeByte)
	newSet := make(map[uint16]bool, len(free))
	for _, b := range free {
		newSet[b] = true
	}
	if err := v.patchBlocks(free, newSet, 0, buf[:writeByte]); err != nil {
		return 0, err
	}
	of.offset = uint32(writeByte)
	return writeByte, nil
}

// patchBlocks applies data (to be placed at absolute file offset o) onto
// physBlocks, a slice of data-block indices ordered by file position.
// Blocks in newBlocks are freshly allocated and have no meaningful prior
// content, so they're zero-filled instead of read back from disk; other
// blocks are read-modify-write to preserve bytes outside the patch range.
func (v *Volume) patchBlocks(physBlocks []uint16, newBlocks map[uint16]bool, o uint32, data []byte) error {
	var scratch [BlockSize]byte
	pos := 0
	n := len(data)
	for pos < n {
		blockIdx := int((o + uint32(pos)) / BlockSize)
		blk := physBlocks[blockIdx]
		offInBlock := int((o + uint32(pos)) % BlockSize)
		nCopy := BlockSize - offInBlock
		if nCopy > n-pos {
			nCopy = n - pos
		}
		if newBlocks[blk] {
			clear(scratch[:])
		} else if err := v.dev.ReadBlock(v.sb.dataIndex+blk, scratch[:]); err != nil {
			return fmt.Errorf("%w: %v", ErrIOError, err)
		}
		copy(scratch[offInBlock:offInBlock+nCopy], data[pos:pos+nCopy])
		if err := v.dev.WriteBlock(v.sb.dataIndex+blk, scratch[:]); err != nil {
			return fmt.Errorf("%w: %v", ErrIOError, err)
		}
		pos += nCopy
	}
	return nil
}
