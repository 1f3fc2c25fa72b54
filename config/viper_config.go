package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// newViper 优先级：环境变量 > 配置文件 > 默认值
func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("marbleparty")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// MARBLE_SERVER_ADDR、MARBLE_CONTACT_RESTITUTION ...
	v.SetEnvPrefix("MARBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("log.level", "MARBLE_LOG_LEVEL", "LOG_LEVEL")
	return v
}

// readOptional 配置文件可选；仅在文件存在但读取失败时报错
func readOptional(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error reading config file: %w", err)
}

func setLogDefaults(v *viper.Viper, l LogSettings) {
	v.SetDefault("log.file", l.File)
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.console", l.Console)
}

// LoadServerConfig 加载房间服务配置
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	v := newViper(configPath)
	v.BindEnv("server.addr", "MARBLE_SERVER_ADDR", "ADDR")

	d := DefaultServerConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.maxPlayersPerRoom", d.Server.MaxPlayersPerRoom)
	v.SetDefault("server.inboundRate", d.Server.InboundRate)
	v.SetDefault("server.inboundBurst", d.Server.InboundBurst)
	v.SetDefault("server.writeWait", d.Server.WriteWait)
	v.SetDefault("server.pongWait", d.Server.PongWait)
	v.SetDefault("server.shutdownTimeout", d.Server.ShutdownTimeout)
	v.SetDefault("contact.bodyRadius", d.Contact.BodyRadius)
	v.SetDefault("contact.restitution", d.Contact.Restitution)
	v.SetDefault("contact.skinMargin", d.Contact.SkinMargin)
	v.SetDefault("contact.epsilon", d.Contact.Epsilon)
	v.SetDefault("contact.pairCooldown", d.Contact.PairCooldown)
	setLogDefaults(v, d.Log)

	if err := readOptional(v); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig 加载客户端配置
func LoadClientConfig(configPath string) (*ClientConfig, error) {
	v := newViper(configPath)

	d := DefaultClientConfig()
	v.SetDefault("client.host", d.Client.Host)
	v.SetDefault("client.room", d.Client.Room)
	v.SetDefault("client.secure", d.Client.Secure)
	v.SetDefault("client.hangTimeout", d.Client.HangTimeout)
	v.SetDefault("client.maxAttempts", d.Client.MaxAttempts)
	v.SetDefault("client.reconnectDelay", d.Client.ReconnectDelay)
	v.SetDefault("client.sendRate", d.Client.SendRate)
	v.SetDefault("client.ghostCapacity", d.Client.GhostCapacity)
	v.SetDefault("client.prefsFile", d.Client.PrefsFile)
	setLogDefaults(v, d.Log)

	if err := readOptional(v); err != nil {
		return nil, err
	}

	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
