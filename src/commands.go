package main

import (
	"PassengerPrep/src/config"
	"PassengerPrep/src/datasource/email"
	"PassengerPrep/src/datasource/file"
	"PassengerPrep/src/processor"
	"PassengerPrep/src/storage"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	fetchFirst bool
	sendReport bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "执行一次流水线",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		stop := storage.SetupSignalHandler(appLog, cancel)
		defer stop()

		res, err := runOnce(ctx, cfg, logger, fetchFirst, sendReport || cfg.SendEmail.Enabled)
		if err != nil {
			return err
		}
		printResult(cmd, res)
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "从邮箱拉取原始数据到 raw 目录",
	RunE: func(cmd *cobra.Command, args []string) error {
		saved, err := newMailboxProvider(cfg, logger).Fetch()
		if errors.Is(err, email.ErrNoNewData) {
			fmt.Fprintln(cmd.OutOrStdout(), "没有新的原始数据")
			return nil
		}
		if err != nil {
			return err
		}
		for _, path := range saved {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "原始数据文件变化后自动重新运行",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		stop := storage.SetupSignalHandler(appLog, cancel)
		defer stop()

		pidFile := cfg.Resolve(cfg.PidFile)
		if err := writePidFile(pidFile); err != nil {
			return err
		}
		defer os.Remove(pidFile)

		trainPath, testPath := cfg.Resolve(cfg.Raw.TrainPath), cfg.Resolve(cfg.Raw.TestPath)
		monitor, err := file.NewFileMonitor(cfg.RawDir(), time.Duration(cfg.Watch.Debounce), trainPath, testPath)
		if err != nil {
			return fmt.Errorf("监控目录失败: %w", err)
		}
		defer monitor.Close()

		// 启动时先跑一次
		runAndLog(ctx, cfg, false)

		logger.Info("开始监控原始数据", zap.String("dir", cfg.RawDir()), zap.Duration("debounce", time.Duration(cfg.Watch.Debounce)))
		return monitor.Watch(ctx, func(path string) {
			logger.Info("原始数据已更新", zap.String("file", path))
			runAndLog(ctx, cfg, false)
		})
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "按 cron 表达式定时运行",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		stop := storage.SetupSignalHandler(appLog, cancel)
		defer stop()

		pidFile := cfg.Resolve(cfg.PidFile)
		if err := writePidFile(pidFile); err != nil {
			return err
		}
		defer os.Remove(pidFile)

		spec := scheduleSpec(cfg)
		var running sync.Mutex
		c := cron.New()
		err := c.AddFunc(spec, func() {
			// 上一次还没跑完就跳过
			if !running.TryLock() {
				logger.Warn("上一次运行尚未结束，跳过", zap.String("spec", spec))
				return
			}
			defer running.Unlock()
			runAndLog(ctx, cfg, cfg.Schedule.FetchFirst)
		})
		if err != nil {
			return fmt.Errorf("创建定时任务失败: %w", err)
		}

		// 启动定时任务
		c.Start()
		logger.Info("定时任务已启动，按Ctrl+C退出", zap.String("spec", spec))
		<-ctx.Done()
		c.Stop()

		// 等正在执行的任务结束
		running.Lock()
		running.Unlock()
		return nil
	},
}

var reopenLogCmd = &cobra.Command{
	Use:   "reopen-log",
	Short: "通知正在运行的 watch/schedule 进程重新打开日志文件",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := readPidFile(cfg.Resolve(cfg.PidFile))
		if err != nil {
			return err
		}
		// 向后台进程发送 SIGHUP
		if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
			return fmt.Errorf("发送 SIGHUP 失败: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "已向进程 %d 发送 SIGHUP\n", pid)
		return nil
	},
}

func newFileProvider(c *config.Config) *processor.FileProvider {
	return processor.NewFileProvider(c.Resolve(c.Raw.TrainPath), c.Resolve(c.Raw.TestPath))
}

func newMailboxProvider(c *config.Config, log *zap.Logger) *email.MailboxProvider {
	client := email.NewEmailClient(c.Email.Server, c.Email.Username, c.Email.Password, log)
	return email.NewMailboxProvider(client, c.Email.TargetSubject,
		c.Resolve(c.Raw.TrainPath), c.Resolve(c.Raw.TestPath), log)
}

func newPipeline(c *config.Config, provider processor.RawDataProvider, log *zap.Logger) *processor.Pipeline {
	w := processor.NewWriter(c.Processed.Format, c.Resolve(c.Processed.TrainPath), c.Resolve(c.Processed.TestPath))
	return processor.NewPipeline(provider, w,
		processor.WithLogger(log),
		processor.WithSentinel(c.Sentinel),
		processor.WithSheetName(c.Raw.SheetName),
	)
}

// runOnce 可选地先拉取邮件，然后执行流水线，最后可选地发送报告
// 邮箱里没有新数据时沿用本地已有的原始文件
func runOnce(ctx context.Context, c *config.Config, log *zap.Logger, fetch, report bool) (*processor.Result, error) {
	if fetch {
		saved, err := newMailboxProvider(c, log).Fetch()
		switch {
		case errors.Is(err, email.ErrNoNewData):
			log.Info("邮箱没有新数据，使用本地原始文件")
		case err != nil:
			return nil, err
		default:
			log.Info("原始数据已更新", zap.Strings("files", saved))
		}
	}

	res, err := newPipeline(c, newFileProvider(c), log).Run(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("运行完成", zap.String("run_id", res.RunID), zap.String("summary", res.Summary), zap.Duration("elapsed", res.Duration))

	if report {
		if err := email.SendReport(c, res, res.Summary, log); err != nil {
			// 报告失败不影响已写出的结果
			log.Error("发送报告失败", zap.Error(err))
		}
	}
	return res, nil
}

// runAndLog 后台模式下的一次运行，错误只记录不退出
func runAndLog(ctx context.Context, c *config.Config, fetch bool) {
	if _, err := runOnce(ctx, c, logger, fetch, c.SendEmail.Enabled); err != nil {
		logger.Error("运行失败", zap.Error(err))
	}
	if rotated, err := appLog.CheckRotate(c.LogMaxSize); err != nil {
		logger.Error("日志轮转失败", zap.Error(err))
	} else if rotated {
		logger.Info("日志已轮转", zap.String("file", appLog.Filename()))
	}
}

// scheduleSpec 没有配置 cron 表达式时按邮件检查间隔运行
func scheduleSpec(c *config.Config) string {
	if strings.TrimSpace(c.Schedule.Spec) != "" {
		return c.Schedule.Spec
	}
	return "@every " + time.Duration(c.Email.CheckInterval).String()
}

func printResult(cmd *cobra.Command, res *processor.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s\n", res.RunID)
	fmt.Fprintf(out, "train: %s (%d rows)\n", res.TrainPath, res.TrainRows)
	fmt.Fprintf(out, "test:  %s (%d rows)\n", res.TestPath, res.TestRows)
	if res.Summary != "" {
		fmt.Fprintln(out, res.Summary)
	}
}

func writePidFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
}

func readPidFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("读取进程号失败: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("进程号文件 %s 内容无效", path)
	}
	return pid, nil
}
