// data.go
package processor

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
)

// DataProcessor 对处理后的训练集计算摘要指标，用于日志和邮件报告
type DataProcessor struct {
	df dataframe.DataFrame
}

func NewDataProcessor(train dataframe.DataFrame) *DataProcessor {
	return &DataProcessor{df: train}
}

func (p *DataProcessor) CalculateMetrics() (map[string]interface{}, error) {
	if err := requireColumns("metrics", p.df, ColSurvived); err != nil {
		return nil, err
	}
	labels, err := p.df.Col(ColSurvived).Int()
	if err != nil {
		return nil, fmt.Errorf("读取标签列失败: %w", err)
	}
	survived := 0
	for _, l := range labels {
		survived += l
	}
	rate := 0.0
	if len(labels) > 0 {
		rate = float64(survived) / float64(len(labels))
	}

	indicators := 0
	for _, name := range p.df.Names() {
		for _, col := range EncodedColumns {
			if strings.HasPrefix(name, col+"_") {
				indicators++
				break
			}
		}
	}

	return map[string]interface{}{
		"train_rows":        p.df.Nrow(),
		"columns":           p.df.Ncol(),
		"indicator_columns": indicators,
		"survival_rate":     rate,
		"last_updated":      time.Now(),
	}, nil
}

// Summary 一行文字摘要
func (p *DataProcessor) Summary() (string, error) {
	m, err := p.CalculateMetrics()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("训练集 %d 行，%d 列（指示列 %d），生存率 %.2f%%",
		m["train_rows"], m["columns"], m["indicator_columns"], m["survival_rate"].(float64)*100), nil
}
