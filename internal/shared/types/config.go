package types

import "time"

// CheckConf 控制探测行为
type CheckConf struct {
	Timeout   time.Duration `ini:"timeout"`
	Workers   int           `ini:"workers"`
	FastClose bool          `ini:"fast_close"`
}

// SourceConf 描述候选列表的来源。本地文件存在时优先于 URL。
type SourceConf struct {
	File         string        `ini:"file"`
	URL          string        `ini:"url"`
	Retries      int           `ini:"retries"`
	RetryDelay   time.Duration `ini:"retry_delay"`
	FetchTimeout time.Duration `ini:"fetch_timeout"`
	UserAgent    string        `ini:"user_agent"`
	// Upstream 可选，下载列表时经由的 SOCKS5 代理 (host:port 或 socks5://host:port)
	Upstream string `ini:"upstream"`
}

// OutputConf 控制结果输出
type OutputConf struct {
	File     string `ini:"file"`
	Progress string `ini:"progress"` // bar | lines | none
}

// LogConf 控制日志系统
type LogConf struct {
	Level  string `ini:"level"`
	Format string `ini:"format"` // console | json
	File   string `ini:"file"`
}

// Config 是整个应用程序的统一配置结构体
type Config struct {
	CheckConf  `ini:"check"`
	SourceConf `ini:"source"`
	OutputConf `ini:"output"`
	LogConf    `ini:"log"`
}

// DefaultConfig 返回与参考行为一致的默认配置。
func DefaultConfig() *Config {
	return &Config{
		CheckConf: CheckConf{
			Timeout: 5 * time.Second,
			Workers: 1,
		},
		SourceConf: SourceConf{
			File:         "socks5_proxies.txt",
			URL:          "https://socks5-proxy.pages.dev/socks5.txt",
			Retries:      3,
			RetryDelay:   2 * time.Second,
			FetchTimeout: 15 * time.Second,
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
		},
		OutputConf: OutputConf{
			File:     "valid_socks_proxies.txt",
			Progress: "lines",
		},
		LogConf: LogConf{
			Level:  "info",
			Format: "console",
		},
	}
}
