package client_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/detectflow/client"
	"github.com/BaSui01/detectflow/testutil"
	"github.com/BaSui01/detectflow/types"
)

func TestLoadJPEG_Passthrough(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteJPEG(t, dir, "photo.jpg", 40, 30)

	data, err := client.LoadJPEG(path)
	require.NoError(t, err)

	// 已是 JPEG 的文件原样返回，不做二次编码
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, raw, data)
}

func TestLoadJPEG_ConvertsPNG(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WritePNG(t, dir, "shot.png", 24, 24, false)

	data, err := client.LoadJPEG(path)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, byte(0xFF), data[0])
	assert.Equal(t, byte(0xD8), data[1])
}

func TestLoadJPEG_ConvertsPNGWithAlpha(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WritePNG(t, dir, "ghost.png", 24, 24, true)

	// 半透明像素展平后照常转码
	data, err := client.LoadJPEG(path)
	require.NoError(t, err)
	assert.Equal(t, byte(0xFF), data[0])
	assert.Equal(t, byte(0xD8), data[1])
}

func TestLoadJPEG_GarbageFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not pixels"), 0o644))

	_, err := client.LoadJPEG(path)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.GetErrorCode(err))
	assert.Contains(t, err.Error(), "cannot convert")
}

func TestLoadJPEG_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := client.LoadJPEG(filepath.Join(t.TempDir(), "absent.jpg"))
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidInput, types.GetErrorCode(err))
}
