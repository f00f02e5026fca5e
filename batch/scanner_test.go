package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/detectflow/testutil"
)

func TestScan_Directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteJPEG(t, dir, "b.jpg", 32, 24)
	testutil.WriteJPEG(t, dir, "a.jpg", 32, 24)
	testutil.WritePNG(t, dir, "c.png", 16, 16, false)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	testutil.WriteJPEG(t, filepath.Join(dir, "nested"), "d.jpg", 8, 8)

	tasks, err := Scan(dir, nil)
	require.NoError(t, err)

	// 字典序排序，索引连续，不递归子目录
	require.Len(t, tasks, 3)
	assert.Equal(t, "a.jpg", filepath.Base(tasks[0].SourcePath))
	assert.Equal(t, "b.jpg", filepath.Base(tasks[1].SourcePath))
	assert.Equal(t, "c.png", filepath.Base(tasks[2].SourcePath))
	for i, task := range tasks {
		assert.Equal(t, i, task.Index)
	}
}

func TestScan_CaseInsensitiveExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteJPEG(t, dir, "UPPER.JPG", 16, 16)
	testutil.WriteJPEG(t, dir, "mixed.JpEg", 16, 16)

	tasks, err := Scan(dir, nil)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestScan_SingleFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteJPEG(t, dir, "one.jpg", 16, 16)

	tasks, err := Scan(path, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 0, tasks[0].Index)
	assert.Equal(t, path, tasks[0].SourcePath)
}

func TestScan_SingleFileWrongType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))

	_, err := Scan(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image type")
}

func TestScan_EmptyDirectory(t *testing.T) {
	t.Parallel()

	_, err := Scan(t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no images found")
}

func TestScan_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := Scan(filepath.Join(t.TempDir(), "absent"), nil)
	require.Error(t, err)
}

func TestScan_CustomExtensions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteJPEG(t, dir, "skip.jpg", 16, 16)
	testutil.WritePNG(t, dir, "keep.png", 16, 16, false)

	// 不带点的扩展名也被接受
	tasks, err := Scan(dir, []string{"png"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "keep.png", filepath.Base(tasks[0].SourcePath))
}

func TestNormalizeExtensions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultExtensions, normalizeExtensions(nil))
	assert.Equal(t, DefaultExtensions, normalizeExtensions([]string{"", "  "}))
	assert.Equal(t, []string{".png", ".jpg"}, normalizeExtensions([]string{"PNG", ".jpg"}))
}
