package processor

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTitle = errors.New("unknown title")
	ErrDataSource   = errors.New("data source unavailable")
	ErrSchema       = errors.New("schema violation")
	ErrBinning      = errors.New("binning failed")
)

// UnknownTitleError 姓名中的称谓不在映射表里，或姓名格式不符合 "Last, Title. First"
type UnknownTitleError struct {
	Name      string
	Token     string
	Malformed bool
}

func (e *UnknownTitleError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("unknown title: malformed name %q", e.Name)
	}
	return fmt.Sprintf("unknown title %q in name %q", e.Token, e.Name)
}

func (e *UnknownTitleError) Is(target error) bool { return target == ErrUnknownTitle }

// DataSourceError 原始数据源无法打开、读取或缺少主键列
type DataSourceError struct {
	Source  string
	Message string
	Err     error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data source %s: %s: %v", e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("data source %s: %s", e.Source, e.Message)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

func (e *DataSourceError) Is(target error) bool { return target == ErrDataSource }

func NewDataSourceError(source, message string, err error) *DataSourceError {
	return &DataSourceError{Source: source, Message: message, Err: err}
}

// SchemaError 数据可读但内容违反输入约定（缺列、取值越界、主键重复）
type SchemaError struct {
	Source  string
	Column  string
	Message string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error in %s: column %s: %s", e.Source, e.Column, e.Message)
	}
	return fmt.Sprintf("schema error in %s: %s", e.Source, e.Message)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func NewSchemaError(source, column, message string) *SchemaError {
	return &SchemaError{Source: source, Column: column, Message: message}
}

// BinningError 分位数边界不唯一，无法等频分箱
type BinningError struct {
	Column string
	Edges  []float64
}

func (e *BinningError) Error() string {
	return fmt.Sprintf("cannot bin %s into quartiles: edges %v are not unique", e.Column, e.Edges)
}

func (e *BinningError) Is(target error) bool { return target == ErrBinning }

// PipelineError 记录失败发生在哪个阶段
type PipelineError struct {
	Pipeline string
	Stage    string
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("pipeline %s: stage %s: %v", e.Pipeline, e.Stage, e.Err)
	}
	return fmt.Sprintf("pipeline %s: %v", e.Pipeline, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewPipelineError(pipeline, stage string, err error) *PipelineError {
	return &PipelineError{Pipeline: pipeline, Stage: stage, Err: err}
}
