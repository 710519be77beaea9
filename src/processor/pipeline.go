package processor

import (
	"context"
	"errors"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StageContext 每次运行创建一次，传给每个阶段
type StageContext struct {
	Ctx      context.Context
	Log      *zap.Logger
	Sentinel int
}

// StageFunc 整表进、整表出
type StageFunc func(sc *StageContext, df dataframe.DataFrame) (dataframe.DataFrame, error)

type Stage struct {
	Name string
	Run  StageFunc
}

// DefaultStages 阶段顺序固定：Title 必须在填充 Age 之前，填充必须在派生特征之前
func DefaultStages() []Stage {
	return []Stage{
		{Name: "title", Run: AddTitle},
		{Name: "impute", Run: FillMissing},
		{Name: "derive", Run: AddDerived},
		{Name: "encode", Run: Encode},
		{Name: "reorder", Run: ReorderColumns},
	}
}

// Result 一次运行的摘要
type Result struct {
	RunID     string
	TrainRows int
	TestRows  int
	Columns   []string
	TrainPath string
	TestPath  string
	Summary   string
	Duration  time.Duration
}

type Pipeline struct {
	name      string
	provider  RawDataProvider
	writer    *Writer
	log       *zap.Logger
	sentinel  int
	sheetName string
	stages    []Stage
}

type Option func(*Pipeline)

func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

func WithSentinel(sentinel int) Option {
	return func(p *Pipeline) { p.sentinel = sentinel }
}

func WithSheetName(name string) Option {
	return func(p *Pipeline) { p.sheetName = name }
}

func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) { p.stages = stages }
}

func WithName(name string) Option {
	return func(p *Pipeline) { p.name = name }
}

func NewPipeline(provider RawDataProvider, writer *Writer, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:     "passenger",
		provider: provider,
		writer:   writer,
		log:      zap.NewNop(),
		sentinel: DefaultSentinel,
		stages:   DefaultStages(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Transform 依次执行各阶段，阶段之间检查 ctx
func (p *Pipeline) Transform(ctx context.Context, log *zap.Logger, df dataframe.DataFrame) (dataframe.DataFrame, error) {
	sc := &StageContext{Ctx: ctx, Sentinel: p.sentinel}
	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return dataframe.DataFrame{}, NewPipelineError(p.name, stage.Name, err)
		}

		start := time.Now()
		sc.Log = log.With(zap.String("stage", stage.Name))
		out, err := stage.Run(sc, df)
		if err == nil {
			err = out.Error()
		}
		if err != nil {
			return dataframe.DataFrame{}, NewPipelineError(p.name, stage.Name, err)
		}
		df = out
		sc.Log.Info("stage completed",
			zap.Duration("duration", time.Since(start)),
			zap.Int("rows", df.Nrow()),
			zap.Int("cols", df.Ncol()))
	}
	return df, nil
}

// Process 读取、变换并拆分，不写文件
func (p *Pipeline) Process(ctx context.Context) (train, test dataframe.DataFrame, err error) {
	return p.process(ctx, p.log)
}

func (p *Pipeline) process(ctx context.Context, log *zap.Logger) (train, test dataframe.DataFrame, err error) {
	if p.provider == nil {
		return train, test, NewPipelineError(p.name, "load", errors.New("no raw data provider"))
	}
	log.Info("reading raw data")
	df, err := Load(ctx, p.provider, p.sheetName, p.sentinel, log.With(zap.String("stage", "load")))
	if err != nil {
		return train, test, NewPipelineError(p.name, "load", err)
	}

	df, err = p.Transform(ctx, log, df)
	if err != nil {
		return train, test, err
	}

	train, test, err = Split(df, p.sentinel)
	if err != nil {
		return train, test, NewPipelineError(p.name, "split", err)
	}
	return train, test, nil
}

// Run 执行一次完整流水线；任何阶段失败都不会写出文件
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID), zap.String("pipeline", p.name))
	log.Info("processing data")

	train, test, err := p.process(ctx, log)
	if err != nil {
		log.Error("pipeline failed", zap.Error(err))
		return nil, err
	}
	if p.writer == nil {
		return nil, NewPipelineError(p.name, "write", errors.New("no writer configured"))
	}
	if err := ctx.Err(); err != nil {
		return nil, NewPipelineError(p.name, "write", err)
	}

	log.Info("writing data", zap.String("format", p.writer.Format))
	if err := p.writer.Write(train, test); err != nil {
		log.Error("pipeline failed", zap.Error(err))
		return nil, NewPipelineError(p.name, "write", err)
	}
	log.Info("train data saved", zap.String("path", p.writer.TrainPath), zap.Int("rows", train.Nrow()))
	log.Info("test data saved", zap.String("path", p.writer.TestPath), zap.Int("rows", test.Nrow()))

	summary, err := NewDataProcessor(train).Summary()
	if err != nil {
		// 输出已经写好，摘要失败只记录
		log.Warn("summary failed", zap.Error(err))
	}

	return &Result{
		RunID:     runID,
		TrainRows: train.Nrow(),
		TestRows:  test.Nrow(),
		Columns:   train.Names(),
		TrainPath: p.writer.TrainPath,
		TestPath:  p.writer.TestPath,
		Summary:   summary,
		Duration:  time.Since(start),
	}, nil
}
