package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BaSui01/detectflow/types"
)

// DefaultExtensions 默认扫描的图片扩展名
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Scan 枚举 path 下的图片文件并生成任务列表。
// 只扫描一层目录，不递归子目录；按文件名字典序排序，
// 索引从 0 开始连续分配，保证任务顺序可复现。
// path 也可以直接指向单个图片文件。
//
// 扩展名匹配不区分大小写；exts 为空时使用 DefaultExtensions。
// 一张图片都没找到属于配置错误，返回 error 而不是空列表。
func Scan(path string, exts []string) ([]types.ImageTask, error) {
	exts = normalizeExtensions(exts)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	// 单文件模式
	if !info.IsDir() {
		if !matchExtension(path, exts) {
			return nil, fmt.Errorf("unsupported image type: %s (expected %s)",
				path, strings.Join(exts, ", "))
		}
		return []types.ImageTask{{Index: 0, SourcePath: path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", path, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if matchExtension(entry.Name(), exts) {
			names = append(names, entry.Name())
		}
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no images found in %s (extensions: %s)",
			path, strings.Join(exts, ", "))
	}

	sort.Strings(names)

	tasks := make([]types.ImageTask, len(names))
	for i, name := range names {
		tasks[i] = types.ImageTask{
			Index:      i,
			SourcePath: filepath.Join(path, name),
		}
	}
	return tasks, nil
}

// normalizeExtensions 统一为带点的小写形式
func normalizeExtensions(exts []string) []string {
	if len(exts) == 0 {
		return DefaultExtensions
	}
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if len(normalized) == 0 {
		return DefaultExtensions
	}
	return normalized
}

func matchExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range exts {
		if ext == want {
			return true
		}
	}
	return false
}
