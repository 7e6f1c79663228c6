package fs_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"minios/fs"
	"minios/fs/blockdev"
)

func newMountedVolume(t *testing.T, blocks uint16) (*fs.Volume, *blockdev.Memory) {
	t.Helper()
	dev := blockdev.NewMemory(blocks)
	require.NoError(t, dev.Open(""))
	require.NoError(t, fs.Format(dev, blocks))
	require.NoError(t, dev.Close())

	v := fs.New(nil)
	require.NoError(t, v.Mount(dev, ""))
	return v, dev
}

func TestMountEmptyImage(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	info, err := v.Info()
	require.NoError(t, err)
	require.Contains(t, info, "total_blk_count=8192")
	require.Contains(t, info, "data_blk_count=8186")
	require.Contains(t, info, "fat_blk_count=4")
	require.Contains(t, info, "fat_free_ratio=8186/8186")
	require.Contains(t, info, "rdir_free_ratio=128/128")
}

func TestSmallFileRoundTrip(t *testing.T) {
	v, dev := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	fd, err := v.Open("a.txt")
	require.NoError(t, err)
	n, err := v.Write(fd, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.NoError(t, v.Close(fd))
	require.NoError(t, v.Unmount())

	v2 := fs.New(nil)
	require.NoError(t, v2.Mount(dev, ""))
	fd2, err := v2.Open("a.txt")
	require.NoError(t, err)
	out := make([]byte, 5)
	n, err = v2.Read(fd2, out)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(out))
}

func TestMultiBlockWrite(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("big.bin"))
	fd, err := v.Open("big.bin")
	require.NoError(t, err)

	data := make([]byte, 10000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	n, err := v.Write(fd, data)
	require.NoError(t, err)
	require.Equal(t, 10000, n)

	ls, err := v.Ls()
	require.NoError(t, err)
	require.Len(t, ls, 1)
	require.EqualValues(t, 10000, ls[0].Size)

	require.NoError(t, v.Lseek(fd, 0))
	out := make([]byte, 10000)
	n, err = v.Read(fd, out)
	require.NoError(t, err)
	require.Equal(t, 10000, n)
	require.Equal(t, data, out)
}

func TestDeleteFreesFAT(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	fd, err := v.Open("a.txt")
	require.NoError(t, err)
	_, err = v.Write(fd, make([]byte, 10000))
	require.NoError(t, err)
	require.NoError(t, v.Close(fd))

	infoBefore, _ := v.Info()
	require.NoError(t, v.Delete("a.txt"))
	infoAfter, _ := v.Info()
	require.NotEqual(t, infoBefore, infoAfter)
	require.True(t, strings.Contains(infoAfter, "fat_free_ratio=8186/8186"))
}

func TestNameBoundaries(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create(strings.Repeat("a", 15)))
	require.ErrorIs(t, v.Create(strings.Repeat("b", 16)), fs.ErrInvalidName)
}

func TestDirectoryFull(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	for i := 0; i < fs.FileMaxCount; i++ {
		require.NoError(t, v.Create(string(rune('a'+i%26))+"_"+strconv.Itoa(i)))
	}
	require.ErrorIs(t, v.Create("overflow"), fs.ErrDirectoryFull)
	require.NoError(t, v.Delete("a_0"))
	require.NoError(t, v.Create("overflow"))
}

func TestTooManyOpen(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	for i := 0; i < fs.OpenMaxCount; i++ {
		name := "f" + strconv.Itoa(i)
		require.NoError(t, v.Create(name))
		_, err := v.Open(name)
		require.NoError(t, err)
	}
	require.NoError(t, v.Create("one_more"))
	_, err := v.Open("one_more")
	require.ErrorIs(t, err, fs.ErrTooManyOpen)
}

func TestLseekBoundary(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	fd, err := v.Open("a.txt")
	require.NoError(t, err)
	_, err = v.Write(fd, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, v.Lseek(fd, 5))
	require.ErrorIs(t, v.Lseek(fd, 6), fs.ErrInvalidArgument)
}

func TestWriteZeroCount(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	fd, err := v.Open("a.txt")
	require.NoError(t, err)
	n, err := v.Write(fd, nil)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	sz, err := v.Stat(fd)
	require.NoError(t, err)
	require.EqualValues(t, 0, sz)
}

func TestReadPastEOF(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	fd, err := v.Open("a.txt")
	require.NoError(t, err)
	_, err = v.Write(fd, []byte("hello"))
	require.NoError(t, err)
	require.NoError(t, v.Lseek(fd, 3))
	out := make([]byte, 10)
	n, err := v.Read(fd, out)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, "lo", string(out[:n]))
}

func TestFATExhaustionMidWrite(t *testing.T) {
	// 4 data blocks total: enough for a tiny image.
	v, _ := newMountedVolume(t, 7) // Nf=1, Nd=4
	require.NoError(t, v.Create("a.txt"))
	fd, err := v.Open("a.txt")
	require.NoError(t, err)

	data := make([]byte, fs.BlockSize*6) // way more than the 4 data blocks available
	n, err := v.Write(fd, data)
	require.NoError(t, err)
	require.Equal(t, fs.BlockSize*4, n)

	sz, err := v.Stat(fd)
	require.NoError(t, err)
	require.EqualValues(t, fs.BlockSize*4, sz)

	info, _ := v.Info()
	require.Contains(t, info, "fat_free_ratio=0/4")
}

func TestDeleteBusyWhileOpen(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	_, err := v.Open("a.txt")
	require.NoError(t, err)
	require.ErrorIs(t, v.Delete("a.txt"), fs.ErrBusy)
}

func TestUnmountRejectsOpenDescriptors(t *testing.T) {
	v, _ := newMountedVolume(t, 8192)
	require.NoError(t, v.Create("a.txt"))
	_, err := v.Open("a.txt")
	require.NoError(t, err)
	require.ErrorIs(t, v.Unmount(), fs.ErrOpenFilesOutstanding)
}
