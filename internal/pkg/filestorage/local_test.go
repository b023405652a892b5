package filestorage

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	ls, err := NewLocalStorage(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	return ls
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewLocalStorage_CreatesDirectory(t *testing.T) {
	ls := newTestStorage(t)
	info, err := os.Stat(ls.BasePath())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, filepath.Join(ls.BasePath(), "x.csv"), ls.Path("x.csv"))
}

func TestCreateOpenRoundTrip(t *testing.T) {
	ls := newTestStorage(t)
	path := ls.Path("a.csv")

	w, err := ls.Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "A,B\n1,2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.True(t, ls.Exists(path))
	size, err := ls.Size(path)
	require.NoError(t, err)
	assert.EqualValues(t, 8, size)

	r, err := ls.Open(path)
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "A,B\n1,2\n", string(b))
}

func TestOpenMissingFileWrapsNotExist(t *testing.T) {
	ls := newTestStorage(t)
	_, err := ls.Open(ls.Path("missing.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.csv")
}

func TestCopyRenameRemove(t *testing.T) {
	ls := newTestStorage(t)
	src, dst, moved := ls.Path("src.csv"), ls.Path("dst.csv"), ls.Path("moved.csv")
	writeFile(t, src, "X,Y\n")

	require.NoError(t, ls.CopyFile(src, dst))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "X,Y\n", string(b))

	require.NoError(t, ls.Rename(dst, moved))
	assert.False(t, ls.Exists(dst))
	assert.True(t, ls.Exists(moved))

	require.NoError(t, ls.Remove(moved))
	assert.False(t, ls.Exists(moved))
	assert.NoError(t, ls.Remove(moved), "removing a missing file is not an error")
	assert.NoError(t, ls.Remove(""))

	assert.Error(t, ls.CopyFile(ls.Path("nope.csv"), dst))
}

func TestReadFirstLineAndCSVCheck(t *testing.T) {
	ls := newTestStorage(t)

	good := ls.Path("good.csv")
	writeFile(t, good, "A,B,C\r\n1,2,3\r\n")
	line, err := ls.ReadFirstLine(good)
	require.NoError(t, err)
	assert.Equal(t, "A,B,C", line)
	assert.True(t, ls.IsValidCSVFile(good))

	noComma := ls.Path("nocomma.csv")
	writeFile(t, noComma, "garbage\n")
	assert.False(t, ls.IsValidCSVFile(noComma))

	empty := ls.Path("empty.csv")
	writeFile(t, empty, "")
	assert.False(t, ls.IsValidCSVFile(empty))

	long := make([]byte, maxHeaderLine)
	for i := range long {
		long[i] = ','
	}
	tooLong := ls.Path("long.csv")
	writeFile(t, tooLong, string(long)+"\n")
	assert.False(t, ls.IsValidCSVFile(tooLong))

	assert.False(t, ls.IsValidCSVFile(ls.Path("missing.csv")))
}

func TestListSortedByName(t *testing.T) {
	ls := newTestStorage(t)
	writeFile(t, ls.Path("b.csv"), "1")
	writeFile(t, ls.Path("a.csv"), "22")
	require.NoError(t, ls.EnsureDir(ls.Path("sub")))

	entries, err := ls.List(ls.BasePath())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.csv", entries[0].Name)
	assert.EqualValues(t, 2, entries[0].Size)
	assert.Equal(t, "b.csv", entries[1].Name)
	assert.Equal(t, "sub", entries[2].Name)
	assert.True(t, entries[2].IsDir)

	require.NoError(t, ls.RemoveAll(ls.Path("sub")))
	assert.False(t, ls.Exists(ls.Path("sub")))
}

func TestCheckWritable(t *testing.T) {
	ls := newTestStorage(t)
	require.NoError(t, ls.CheckWritable(ls.BasePath()))
	assert.False(t, ls.Exists(ls.Path(ScratchFileName)), "scratch file is cleaned up")

	assert.Error(t, ls.CheckWritable(ls.Path("does-not-exist")))
}

func TestFreeSpace(t *testing.T) {
	ls := newTestStorage(t)
	free, err := ls.FreeSpace(ls.BasePath())
	if err == ErrFreeSpaceUnsupported {
		t.Skip("free space query unsupported on this platform")
	}
	require.NoError(t, err)
	assert.Greater(t, free, uint64(0))
}
