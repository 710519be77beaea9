package processor

import (
	"io"
	"os"
	"path/filepath"
)

// Source 一份可读取的原始表格，扩展名决定解析方式
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// RawDataProvider 提供训练集与预测集两份原始数据，获取方式对流水线不可见
type RawDataProvider interface {
	Train() Source
	Test() Source
}

// FileSource 本地文件
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return filepath.Base(s.Path) }

func (s FileSource) Open() (io.ReadCloser, error) { return os.Open(s.Path) }

// FileProvider 两个本地文件路径组成的数据源
type FileProvider struct {
	TrainPath string
	TestPath  string
}

func NewFileProvider(trainPath, testPath string) *FileProvider {
	return &FileProvider{TrainPath: trainPath, TestPath: testPath}
}

func (p *FileProvider) Train() Source { return FileSource{Path: p.TrainPath} }

func (p *FileProvider) Test() Source { return FileSource{Path: p.TestPath} }
