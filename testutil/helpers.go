// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试上下文与测试图像构造
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	path := testutil.WriteJPEG(t, dir, "cat.jpg", 64, 48)
// =============================================================================
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// =============================================================================
// 🖼️ 图像构造辅助
// =============================================================================

// NewGradientImage 生成一张宽高渐变的 RGBA 图像。
// 像素值由坐标决定，同尺寸图像内容相同，便于缓存键断言。
func NewGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(width, 1)),
				G: uint8(y * 255 / max(height, 1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// WriteJPEG 在 dir 下生成一张可解码的 JPEG 测试图片，返回完整路径
func WriteJPEG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, NewGradientImage(width, height), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write jpeg: %v", err)
	}
	return path
}

// WritePNG 在 dir 下生成一张 PNG 测试图片，返回完整路径。
// withAlpha 为 true 时带半透明像素，用于验证透明通道的铺底处理。
func WritePNG(t *testing.T, dir, name string, width, height int, withAlpha bool) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			alpha := uint8(255)
			if withAlpha && (x+y)%2 == 0 {
				alpha = 128
			}
			img.Set(x, y, color.NRGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: 200,
				A: alpha,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}
