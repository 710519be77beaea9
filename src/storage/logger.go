package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 日志记录器：zap 负责结构化编码，文件句柄由这里管理以支持重新打开和轮转
type Logger struct {
	*zap.Logger

	filename string     // 日志文件路径
	file     *os.File   // 日志文件句柄
	mu       sync.Mutex // 互斥锁，保护 file
	level    zap.AtomicLevel
}

// fileSink 把 zap 的输出转发到 Logger 当前持有的文件
type fileSink struct {
	l *Logger
}

func (s fileSink) Write(p []byte) (int, error) {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.l.file == nil {
		return len(p), nil
	}
	return s.l.file.Write(p)
}

func (s fileSink) Sync() error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.l.file == nil {
		return nil
	}
	return s.l.file.Sync()
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径
//	verbose: 为 true 时输出 DEBUG 级别
//
// 文件中写 JSON，stderr 上写便于阅读的控制台格式
func NewLogger(filename string, verbose bool) (*Logger, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
	}

	// 打开或创建日志文件，权限设置为0644
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	l := &Logger{
		filename: filename,
		file:     file,
		level:    level,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(fileSink{l: l}), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	)
	l.Logger = zap.New(core)
	return l, nil
}

// NewNop 不输出任何内容的日志记录器，测试用
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// Close 刷新并关闭日志文件
func (l *Logger) Close() error {
	_ = l.Logger.Sync()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开一个文件
// 参数：
// filename：新文件的路径
// 返回值：
// error：重建文件时的错误
func (l *Logger) Reopen(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 关闭旧文件
	if l.file != nil {
		_ = l.file.Close()
	}

	// 重新打开
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	l.filename = filename
	return nil
}

// CheckRotate 文件超过 maxSize（形如 "10 * 1024 * 1024"）时轮转
// 返回是否发生了轮转
func (l *Logger) CheckRotate(maxSize string) (bool, error) {
	l.mu.Lock()
	file := l.file
	l.mu.Unlock()
	if file == nil {
		return false, nil
	}

	info, err := file.Stat()
	if err != nil {
		return false, err
	}

	limit := eval(maxSize)
	if limit <= 0 || info.Size() <= limit {
		return false, nil
	}
	return true, l.rotateLog()
}

// rotateLog 把当前文件改名为带时间戳的文件，再重新打开原文件名
func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		ext := filepath.Ext(l.filename)
		base := strings.TrimSuffix(l.filename, ext)
		rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format("20060102150405"), ext)
		if err := os.Rename(l.filename, rotated); err != nil {
			return fmt.Errorf("日志轮转失败: %w", err)
		}
	}

	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.file = nil
		return err
	}
	l.file = file
	return nil
}

// Filename 当前日志文件路径
func (l *Logger) Filename() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filename
}

// SetVerbose 运行期间切换 DEBUG 级别
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	l.level.SetLevel(zapcore.InfoLevel)
}

// eval 计算 "10 * 1024 * 1024" 形式的乘法表达式，非法输入返回 0
func eval(expr string) int64 {
	if strings.TrimSpace(expr) == "" {
		return 0
	}
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}
