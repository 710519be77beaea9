package processor

import (
	"PassengerPrep/src/config"
	"PassengerPrep/src/datasource/file"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

// Writer 写出训练集和预测集；两份都写成功后才替换目标文件
type Writer struct {
	Format    string
	TrainPath string
	TestPath  string
}

func NewWriter(format, trainPath, testPath string) *Writer {
	return &Writer{Format: strings.ToLower(format), TrainPath: trainPath, TestPath: testPath}
}

// rename 测试中替换以模拟替换失败
var rename = os.Rename

// Write 先写临时文件，再把已有的目标文件挪到备份位置后放入新文件；
// 任何一步失败都会恢复原来的目标文件，不会留下一新一旧的输出
func (w *Writer) Write(train, test dataframe.DataFrame) error {
	outputs := []struct {
		df   dataframe.DataFrame
		path string
	}{{train, w.TrainPath}, {test, w.TestPath}}

	for _, out := range outputs {
		if info, err := os.Stat(out.path); err == nil && info.IsDir() {
			return fmt.Errorf("替换 %s 失败: 目标是目录", out.path)
		}
	}

	temps := make([]string, 0, len(outputs))
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}

	for _, out := range outputs {
		tmp, err := w.writeTemp(out.df, out.path)
		if err != nil {
			cleanup()
			return fmt.Errorf("写入 %s 失败: %w", out.path, err)
		}
		temps = append(temps, tmp)
	}

	// backups[i] 为空表示目标原来不存在
	backups := make([]string, len(outputs))
	installed := 0
	rollback := func() {
		for i := installed - 1; i >= 0; i-- {
			os.Remove(outputs[i].path)
		}
		for i, b := range backups {
			if b != "" {
				rename(b, outputs[i].path)
			}
		}
		cleanup()
	}

	for i, out := range outputs {
		if _, err := os.Lstat(out.path); err != nil {
			continue
		}
		backup := temps[i] + ".bak"
		if err := rename(out.path, backup); err != nil {
			rollback()
			return fmt.Errorf("备份 %s 失败: %w", out.path, err)
		}
		backups[i] = backup
	}

	for i, out := range outputs {
		if err := rename(temps[i], out.path); err != nil {
			rollback()
			return fmt.Errorf("替换 %s 失败: %w", out.path, err)
		}
		installed++
	}

	for _, b := range backups {
		if b != "" {
			os.Remove(b)
		}
	}
	return nil
}

func (w *Writer) writeTemp(df dataframe.DataFrame, path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}

	switch w.Format {
	case config.FormatXLSX:
		err = file.WriteExcel(df, f)
	case config.FormatCSV, "":
		err = file.WriteCSV(df, f)
	default:
		err = fmt.Errorf("不支持的输出格式: %q", w.Format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
