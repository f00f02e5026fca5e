package batch

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/BaSui01/detectflow/types"
)

// WriteReport 将批处理报告以缩进 JSON 写入 path。
// 产物供下游脚本消费，字段布局见 types.BatchReport。
func WriteReport(path string, report *types.BatchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
