package storage

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// SetupSignalHandler SIGHUP 重新打开日志文件（配合 logrotate），SIGINT/SIGTERM 调用 cancel
// 返回的函数用于停止监听
func SetupSignalHandler(logger *Logger, cancel context.CancelFunc) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigChan:
				switch sig {
				case syscall.SIGINT, syscall.SIGTERM:
					logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
					cancel()
				case syscall.SIGHUP:
					if err := logger.Reopen(logger.Filename()); err != nil {
						logger.Error("reopen log file failed", zap.Error(err))
						continue
					}
					logger.Info("log file reopened", zap.String("file", logger.Filename()))
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}
