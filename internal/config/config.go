package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSymbols is the watch list used when none is configured.
var DefaultSymbols = []string{
	"AMD", "PLTR", "NVDA", "SMCI", "ANET", "ACLX", "AGYS", "AISP", "TSLA", "META", "AMZN", "MSFT", "SMTC",
}

// Run modes.
const (
	RunModeOnce   = "once"
	RunModeDaemon = "daemon"
)

// Config holds all application configuration.
type Config struct {
	Symbols    []string `yaml:"symbols"`
	DataSource struct {
		Provider       string        `yaml:"provider"` // yahoo, rest or mock
		BaseURL        string        `yaml:"base_url"`
		APIKey         string        `yaml:"api_key"`
		Timeout        time.Duration `yaml:"timeout"`
		RequestsPerSec int           `yaml:"requests_per_sec"`
		MaxRetries     uint64        `yaml:"max_retries"`
	} `yaml:"data_source"`
	Batch struct {
		Workers int `yaml:"workers"`
	} `yaml:"batch"`
	Export struct {
		XLSXPath string `yaml:"xlsx_path"`
	} `yaml:"export"`
	Email struct {
		Enabled    bool     `yaml:"enabled"`
		Host       string   `yaml:"host"`
		Port       int      `yaml:"port"`
		Username   string   `yaml:"username"`
		Password   string   `yaml:"password"`
		From       string   `yaml:"from"`
		To         []string `yaml:"to"`
		Subject    string   `yaml:"subject"`
		AttachXLSX bool     `yaml:"attach_xlsx"`
	} `yaml:"email"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RunMode   string `yaml:"run_mode"`
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = splitList(v)
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("BATCH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_WORKERS: %w", err)
		}
		c.Batch.Workers = n
	}
	if v := os.Getenv("XLSX_PATH"); v != "" {
		c.Export.XLSXPath = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.Email.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMTP_PORT: %w", err)
		}
		c.Email.Port = n
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.Email.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv("EMAIL_TO"); v != "" {
		c.Email.To = splitList(v)
		c.Email.Enabled = true
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("RUN_MODE"); v != "" {
		c.Schedule.RunMode = v
	}
	if v := os.Getenv("DAILY_CRON"); v != "" {
		c.Schedule.DailyCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.Metrics.ListenAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.DataSource.RequestsPerSec == 0 {
		c.DataSource.RequestsPerSec = 2
	}
	if c.DataSource.MaxRetries == 0 {
		c.DataSource.MaxRetries = 3
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = 1
	}
	if c.Export.XLSXPath == "" {
		c.Export.XLSXPath = "stock.xlsx"
	}
	if c.Email.Host == "" {
		c.Email.Host = "smtp.mail.yahoo.com"
	}
	if c.Email.Port == 0 {
		c.Email.Port = 465
	}
	if c.Email.Username == "" {
		c.Email.Username = c.Email.From
	}
	if c.Email.Subject == "" {
		c.Email.Subject = "Stock Technical Analysis Results"
	}
	if c.Schedule.RunMode == "" {
		c.Schedule.RunMode = RunModeOnce
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 22 * * 1-5"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/scanner.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be at least 1")
	}
	if c.Email.Enabled {
		if c.Email.From == "" || len(c.Email.To) == 0 {
			return fmt.Errorf("email.from and email.to are required when email is enabled")
		}
		if c.Email.Password == "" {
			return fmt.Errorf("email.password is required when email is enabled")
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	switch c.Schedule.RunMode {
	case RunModeOnce, RunModeDaemon:
	default:
		return fmt.Errorf("schedule.run_mode must be %q or %q", RunModeOnce, RunModeDaemon)
	}
	return nil
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
