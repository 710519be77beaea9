package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultSentinel   = -888
	DefaultLogName    = "app.log"
	DefaultLogMaxSize = "10 * 1024 * 1024"
	DefaultPidFile    = "passengerprep.pid"
	FormatCSV         = "csv"
	FormatXLSX        = "xlsx"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir string `yaml:"data_dir"` // 数据根目录，相对路径基于此目录解析

	Raw struct {
		TrainPath string `yaml:"train_path"` // 带标签的训练数据
		TestPath  string `yaml:"test_path"`  // 待预测数据
		SheetName string `yaml:"sheet_name"` // xlsx 源文件的工作表名
	} `yaml:"raw"`

	Processed struct {
		TrainPath string `yaml:"train_path"`
		TestPath  string `yaml:"test_path"`
		Format    string `yaml:"format"` // csv 或 xlsx
	} `yaml:"processed"`

	Sentinel   int    `yaml:"sentinel"` // 预测集标签占位值
	LogName    string `yaml:"log_name"`
	LogMaxSize string `yaml:"log_max_size"`
	PidFile    string `yaml:"pid_file"` // watch/schedule 运行时写入进程号，reopen-log 据此发 SIGHUP

	Watch struct {
		Debounce Duration `yaml:"debounce"` // 文件变化后等待的时间
	} `yaml:"watch"`

	Schedule struct {
		Spec       string `yaml:"spec"`        // cron 表达式，如 "@every 1h"
		FetchFirst bool   `yaml:"fetch_first"` // 每次运行前先从邮箱拉取原始数据
	} `yaml:"schedule"`

	Email struct {
		Server        string   `yaml:"server"`         // 邮件服务器地址
		Username      string   `yaml:"username"`       // 邮箱用户名
		Password      string   `yaml:"password"`       // 邮箱密码
		TargetSubject string   `yaml:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `yaml:"check_interval"` // 检查新邮件的间隔时间
	} `yaml:"email"`

	SendEmail struct {
		Enabled  bool     `yaml:"enabled"`
		Server   string   `yaml:"server"`   // SMTP 服务器地址
		Username string   `yaml:"username"` // 发件人
		Password string   `yaml:"password"`
		To       []string `yaml:"to"`
		Subject  string   `yaml:"subject"`
	} `yaml:"send_email"`
}

// Default 返回填好默认值的配置，账号信息仍可由环境变量提供
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg
}

// LoadConfig 读取 folder/file 下的 YAML 配置
func LoadConfig(folder, file string) (*Config, error) {
	configFile := filepath.Join(folder, file)

	data, err := readFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析Config失败: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Raw.TrainPath == "" {
		c.Raw.TrainPath = filepath.Join("raw", "train.csv")
	}
	if c.Raw.TestPath == "" {
		c.Raw.TestPath = filepath.Join("raw", "test.csv")
	}
	if c.Raw.SheetName == "" {
		c.Raw.SheetName = "Sheet1"
	}
	if c.Processed.Format == "" {
		c.Processed.Format = FormatCSV
	}
	if c.Processed.TrainPath == "" {
		c.Processed.TrainPath = filepath.Join("processed", "train."+c.Processed.Format)
	}
	if c.Processed.TestPath == "" {
		c.Processed.TestPath = filepath.Join("processed", "test."+c.Processed.Format)
	}
	if c.Sentinel == 0 {
		c.Sentinel = DefaultSentinel
	}
	if c.LogName == "" {
		c.LogName = DefaultLogName
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = DefaultLogMaxSize
	}
	if c.PidFile == "" {
		c.PidFile = DefaultPidFile
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = Duration(2 * time.Second)
	}
	if c.Email.CheckInterval == 0 {
		c.Email.CheckInterval = Duration(5 * time.Minute)
	}
	if c.SendEmail.Subject == "" {
		c.SendEmail.Subject = "processed passenger data"
	}
}

// 环境变量覆盖账号信息，避免把密码写进配置文件
func (c *Config) applyEnvOverrides() {
	overrides := map[string]*string{
		"PASSENGERPREP_EMAIL_USERNAME": &c.Email.Username,
		"PASSENGERPREP_EMAIL_PASSWORD": &c.Email.Password,
		"PASSENGERPREP_SMTP_USERNAME":  &c.SendEmail.Username,
		"PASSENGERPREP_SMTP_PASSWORD":  &c.SendEmail.Password,
	}
	for env, field := range overrides {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if c.Sentinel == 0 || c.Sentinel == 1 {
		return fmt.Errorf("sentinel %d 与真实标签冲突", c.Sentinel)
	}
	switch strings.ToLower(c.Processed.Format) {
	case FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("不支持的输出格式: %q", c.Processed.Format)
	}
	return nil
}

// Resolve 将相对路径拼接到 DataDir 下
func (c *Config) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// RawDir 原始数据所在目录（以训练集路径为准）
func (c *Config) RawDir() string {
	return filepath.Dir(c.Resolve(c.Raw.TrainPath))
}

// Duration 是time.Duration的自定义包装类型
// 用于支持YAML中 "5m" 这样的写法
type Duration time.Duration

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML 实现yaml.Marshaler接口
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
