package fs

import (
	"fmt"
)

// Format writes a fresh superblock, all-free FAT, and empty root directory
// to dev, which must already be open and sized to totalBlocks blocks.
// Layout invariants follow §3: N = 1 + Nf + 1 + Nd, R = 1 + Nf, D = R + 1,
// Nf = ceil(Nd*2/BlockSize). Grounded on the teacher's Formatter.Format,
// simplified to the single fixed FAT12/16-style layout this spec defines
// (no cluster size, no reserved sectors, no partition table).
func Format(dev BlockDevice, totalBlocks uint16) error {
	if totalBlocks < 3 {
		return fmt.Errorf("%w: image too small", ErrInvalidArgument)
	}
	count, err := dev.Count()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	if count != totalBlocks {
		return fmt.Errorf("%w: device has %d blocks, want %d", ErrInvalidArgument, count, totalBlocks)
	}

	// Solve Nf = ceil(Nd*2/BlockSize) with N = 1 + Nf + 1 + Nd for Nd, Nf.
	var nf uint8
	var nd uint16
	for {
		candidateNf := ceilDiv(int(nd)*fatEntrySize, BlockSize)
		if 1+candidateNf+1+int(nd) > int(totalBlocks) {
			break
		}
		nf = uint8(candidateNf)
		nd++
	}
	nd--
	if nd == 0 {
		return fmt.Errorf("%w: image too small for any data blocks", ErrInvalidArgument)
	}

	sb := superblock{
		totalBlocks:  totalBlocks,
		rootDirIndex: uint16(1 + nf),
		dataIndex:    uint16(1+nf) + 1,
		totalDataBlk: nd,
		totalFATBlk:  nf,
	}

	var blk [BlockSize]byte
	sb.marshal(blk[:])
	if err := dev.WriteBlock(0, blk[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}

	clear(blk[:])
	for i := 0; i < int(nf); i++ {
		if err := dev.WriteBlock(uint16(1+i), blk[:]); err != nil {
			return fmt.Errorf("%w: %v", ErrIOError, err)
		}
	}

	clear(blk[:])
	if err := dev.WriteBlock(sb.rootDirIndex, blk[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrIOError, err)
	}
	return nil
}

func ceilDiv(a, b int) int {
	if a%b == 0 {
		return a / b
	}
	return a/b + 1
}
