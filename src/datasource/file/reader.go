// reader.go
package file

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
)

// NullTokens 读入时视为缺失值的单元格内容
var NullTokens = []string{"", "NA", "NaN", "<nil>"}

// 支持的原始文件格式
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// ReadCSV 读取CSV为DataFrame，types 中列出的列使用指定类型，其余列自动推断
func ReadCSV(r io.Reader, types map[string]series.Type) (dataframe.DataFrame, error) {
	df := dataframe.ReadCSV(r,
		dataframe.WithTypes(types),
		dataframe.NaNValues(NullTokens),
	)
	if err := df.Error(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("解析CSV失败: %w", err)
	}
	return df, nil
}

// ReadXLSX 从XLSX数据加载到DataFrame
// sheetName 不存在时使用第一个工作表，第一行为表头
func ReadXLSX(data []byte, sheetName string, types map[string]series.Type) (dataframe.DataFrame, error) {

	// 1. 使用tealeg/xlsx打开Excel文件
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file false: %w", err)
	}

	// 2. 获取工作表
	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表")
	}
	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		sheet = xlFile.Sheets[0]
	}

	// 3. 转换为Gota DataFrame
	records := sheetRecords(sheet)
	if len(records) < 2 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 没有数据行", sheet.Name)
	}

	df := dataframe.LoadRecords(records,
		dataframe.WithTypes(types),
		dataframe.NaNValues(NullTokens),
	)
	if err := df.Error(); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("转换为dataframe失败: %w", err)
	}
	return df, nil
}

// ReadFile 按扩展名选择解析方式
func ReadFile(path, sheetName string, types map[string]series.Type) (dataframe.DataFrame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtXLSX:
		data, err := os.ReadFile(path)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		return ReadXLSX(data, sheetName, types)
	default:
		f, err := os.Open(path)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		defer f.Close()
		return ReadCSV(f, types)
	}
}

// sheetRecords 将xlsx.Sheet转换为二维字符串，短行补空
func sheetRecords(sheet *xlsx.Sheet) [][]string {
	if sheet == nil || len(sheet.Rows) == 0 {
		return nil
	}

	// 获取列名(第一行是标题行)
	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}
	// 去掉表头末尾的空列
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}

	records := [][]string{headers}
	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		record := make([]string, len(headers))
		empty := true
		for i, cell := range row.Cells {
			if i < len(headers) { // 确保不超出列数范围
				record[i] = cell.Value
				if cell.Value != "" {
					empty = false
				}
			}
		}
		// 跳过完全空的行
		if empty {
			continue
		}
		records = append(records, record)
	}
	return records
}
