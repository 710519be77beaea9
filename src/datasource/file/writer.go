package file

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// WriteCSV 写出带表头的CSV
func WriteCSV(df dataframe.DataFrame, w io.Writer) error {
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("写入CSV失败: %w", err)
	}
	return nil
}

// WriteExcel 将DataFrame写成xlsx并输出到 w
func WriteExcel(df dataframe.DataFrame, w io.Writer) error {
	f, err := buildWorkbook(df)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写入Excel失败: %w", err)
	}
	return nil
}

// SaveToExcel 将DataFrame保存到Excel文件
func SaveToExcel(df dataframe.DataFrame, filePath string) error {
	f, err := buildWorkbook(df)
	if err != nil {
		return err
	}
	defer f.Close()

	// 保存文件
	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

func buildWorkbook(df dataframe.DataFrame) (*excelize.File, error) {
	if err := df.Error(); err != nil {
		return nil, err
	}
	f := excelize.NewFile()

	// 写入列名
	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			f.Close()
			return nil, err
		}
	}

	// 每列只取一次，避免逐格复制Series
	cols := make([]series.Series, len(colNames))
	for i, name := range colNames {
		cols[i] = df.Col(name)
	}

	// 写入数据
	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, col := range cols {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheetName, cell, col.Val(rowIdx)); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}
