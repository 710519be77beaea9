package main

import (
	"PassengerPrep/src/config"
	"PassengerPrep/src/storage"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// 全局参数
	configPath string
	verbose    bool

	cfg    *config.Config
	appLog *storage.Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "passengerprep",
	Short: "乘客名单特征工程流水线",
	Long: `把原始的训练集和预测集乘客名单合并、填充缺失值、派生特征并做独热编码，
再拆回训练集和预测集写到 processed 目录。

原始数据可以是本地 csv/xlsx 文件，也可以从邮箱附件拉取。`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return err
		}

		// 初始化日志系统
		appLog, err = storage.NewLogger(cfg.LogName, verbose)
		if err != nil {
			return fmt.Errorf("初始化日志失败: %w", err)
		}
		logger = appLog.Logger
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLog != nil {
			_ = appLog.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join("config", "config.yaml"), "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出 DEBUG 日志")

	runCmd.Flags().BoolVar(&fetchFirst, "fetch", false, "运行前先从邮箱拉取原始数据")
	runCmd.Flags().BoolVar(&sendReport, "report", false, "运行后把结果发邮件（需要 send_email 配置）")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(reopenLogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig 默认路径下没有配置文件时使用默认配置，显式指定的文件必须存在
func loadConfig(path string, explicit bool) (*config.Config, error) {
	c, err := config.LoadConfig(filepath.Dir(path), filepath.Base(path))
	if err == nil {
		return c, nil
	}
	if !explicit && errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}
