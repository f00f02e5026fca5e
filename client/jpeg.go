package client

import (
	"bytes"
	"fmt"
	"os"

	"github.com/disintegration/imaging"

	"github.com/BaSui01/detectflow/types"
)

// jpegMagic 是 JPEG 文件头（SOI 标记）
var jpegMagic = []byte{0xFF, 0xD8}

// LoadJPEG 读取一个图像文件并返回可直接上传的 JPEG 字节。
// 已是 JPEG 的文件原样返回；其他格式透明转码为 JPEG（质量 95），
// alpha 或调色板通道在转码前展平为不透明 RGB。读取与解码失败、
// 超出服务端体积上限都在本地以 INVALID_INPUT 拒绝。
func LoadJPEG(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("cannot read image %s", path)).WithCause(err)
	}

	if !bytes.HasPrefix(data, jpegMagic) {
		data, err = reencodeJPEG(data)
		if err != nil {
			return nil, types.NewError(types.ErrInvalidInput,
				fmt.Sprintf("cannot convert %s to jpeg", path)).WithCause(err)
		}
	}

	if len(data) > MaxImageBytes {
		return nil, types.NewError(types.ErrInvalidInput,
			fmt.Sprintf("image %s is %d bytes after encoding, service limit is %d",
				path, len(data), MaxImageBytes))
	}
	return data, nil
}

// reencodeJPEG 把任意受支持格式的图像字节转码为 JPEG（质量 95）。
// 先把像素展平为不透明 RGB：保留原 RGB 样本、把 alpha 置为满，
// 避免编码器按预乘语义改写半透明像素的颜色值。
func reencodeJPEG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	flat := imaging.Clone(img)
	for i := 3; i < len(flat.Pix); i += 4 {
		flat.Pix[i] = 0xFF
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
