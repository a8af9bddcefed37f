package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"sockscheck_go/internal/shared/types"

	ini "gopkg.in/ini.v1"
)

// LoadIni 从指定的 fileName 加载配置到传入的 types.Config 结构体中。
// cfg 中已有的值作为默认值；文件中未出现的键保持不变。
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}

	// 使用 MapTo 自动将 .ini 文件的 section 映射到 cfg 结构体的嵌入字段
	if err := iniFile.MapTo(cfg); err != nil {
		return fmt.Errorf("failed to map config '%s': %w", fileName, err)
	}

	ApplyEnv(cfg)
	return Validate(cfg)
}

// Load 在 fileName 存在时加载它，否则只应用环境变量覆盖。
// 返回值表示文件是否被读取。
func Load(cfg *types.Config, fileName string) (bool, error) {
	if fileName != "" {
		if _, err := os.Stat(fileName); err == nil {
			return true, LoadIni(cfg, fileName)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	ApplyEnv(cfg)
	return false, Validate(cfg)
}

// SaveIni 将内存中的 types.Config 结构体保存回指定的 fileName。
func SaveIni(cfg *types.Config, fileName string) error {
	iniFile := ini.Empty()
	if err := ini.ReflectFrom(iniFile, cfg); err != nil {
		return fmt.Errorf("failed to reflect config to ini object: %w", err)
	}
	return iniFile.SaveTo(fileName)
}

// Validate 检查配置中不能自动修正的错误，并修正可以修正的值。
func Validate(cfg *types.Config) error {
	if cfg.CheckConf.Timeout <= 0 {
		return fmt.Errorf("check.timeout must be positive, got %s", cfg.CheckConf.Timeout)
	}
	if cfg.CheckConf.Workers < 1 {
		cfg.CheckConf.Workers = 1
	}
	if cfg.SourceConf.Retries < 1 {
		cfg.SourceConf.Retries = 1
	}
	if cfg.SourceConf.RetryDelay < 0 {
		return fmt.Errorf("source.retry_delay must not be negative, got %s", cfg.SourceConf.RetryDelay)
	}
	switch cfg.OutputConf.Progress {
	case "bar", "lines", "none":
	case "":
		cfg.OutputConf.Progress = "lines"
	default:
		return fmt.Errorf("output.progress must be one of bar|lines|none, got %q", cfg.OutputConf.Progress)
	}
	return nil
}

// ApplyEnv 应用环境变量覆盖
func ApplyEnv(cfg *types.Config) {
	overrideFromEnvInt(&cfg.CheckConf.Workers, "SOCKSCHECK_WORKERS")
	overrideFromEnvString(&cfg.SourceConf.URL, "SOCKSCHECK_SOURCE_URL")
	overrideFromEnvString(&cfg.SourceConf.File, "SOCKSCHECK_SOURCE_FILE")
	overrideFromEnvString(&cfg.SourceConf.Upstream, "SOCKSCHECK_UPSTREAM")
	overrideFromEnvString(&cfg.LogConf.Level, "SOCKSCHECK_LOG_LEVEL")
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if v, ok := os.LookupEnv(envName); ok {
		*target = strings.TrimSpace(v)
	}
}
