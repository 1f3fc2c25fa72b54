// Package config 服务端与客户端配置结构、默认值与校验；加载见 viper_config.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"marbleparty/logging"
)

// ServerConfig 房间服务配置
type ServerConfig struct {
	Server  ServerSettings  `mapstructure:"server"`
	Contact ContactSettings `mapstructure:"contact"`
	Log     LogSettings     `mapstructure:"log"`
}

// ServerSettings 监听与连接参数
type ServerSettings struct {
	Addr              string        `mapstructure:"addr"`
	MaxPlayersPerRoom int           `mapstructure:"maxPlayersPerRoom"`
	InboundRate       float64       `mapstructure:"inboundRate"`  // 每连接每秒入站帧
	InboundBurst      int           `mapstructure:"inboundBurst"` // 突发容量
	WriteWait         time.Duration `mapstructure:"writeWait"`
	PongWait          time.Duration `mapstructure:"pongWait"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`
}

// ContactSettings 服务端两球接触判定参数
type ContactSettings struct {
	BodyRadius   float64       `mapstructure:"bodyRadius"`
	Restitution  float64       `mapstructure:"restitution"`
	SkinMargin   float64       `mapstructure:"skinMargin"`
	Epsilon      float64       `mapstructure:"epsilon"` // 距离平方低于此值视为重合，跳过
	PairCooldown time.Duration `mapstructure:"pairCooldown"`
}

// LogSettings 日志输出
type LogSettings struct {
	File    string `mapstructure:"file"`
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// Options 转换为 logging 初始化参数
func (l LogSettings) Options() logging.Options {
	return logging.Options{File: l.File, Level: l.Level, Console: l.Console}
}

// DefaultServerConfig 默认服务端配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Addr:              ":1999",
			MaxPlayersPerRoom: 16,
			InboundRate:       60,
			InboundBurst:      20,
			WriteWait:         10 * time.Second,
			PongWait:          60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Contact: ContactSettings{
			BodyRadius:   0.2,
			Restitution:  0.6,
			SkinMargin:   0.005,
			Epsilon:      0.0001,
			PairCooldown: 66 * time.Millisecond,
		},
		Log: LogSettings{
			File:    "party.log",
			Level:   "info",
			Console: true,
		},
	}
}

// Validate 校验配置合法性
func (c *ServerConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must be set")
	}
	if c.Server.MaxPlayersPerRoom < 1 {
		return fmt.Errorf("server.maxPlayersPerRoom must be at least 1")
	}
	if c.Server.InboundRate <= 0 || c.Server.InboundBurst < 1 {
		return fmt.Errorf("server.inboundRate and server.inboundBurst must be positive")
	}
	if c.Server.PongWait <= 0 || c.Server.WriteWait <= 0 {
		return fmt.Errorf("server.pongWait and server.writeWait must be positive")
	}
	return c.Contact.Validate()
}

// Validate 校验接触参数
func (c ContactSettings) Validate() error {
	if c.BodyRadius <= 0 {
		return fmt.Errorf("contact.bodyRadius must be positive")
	}
	if c.Restitution < 0 || c.Restitution > 1 {
		return fmt.Errorf("contact.restitution must be within [0,1]")
	}
	if c.SkinMargin < 0 || c.Epsilon < 0 || c.PairCooldown < 0 {
		return fmt.Errorf("contact.skinMargin, contact.epsilon and contact.pairCooldown must not be negative")
	}
	return nil
}

// ClientConfig 客户端配置
type ClientConfig struct {
	Client ClientSettings `mapstructure:"client"`
	Log    LogSettings    `mapstructure:"log"`
}

// ClientSettings 连接、重试与同步参数
type ClientSettings struct {
	Host           string        `mapstructure:"host"`
	Room           string        `mapstructure:"room"`
	Secure         bool          `mapstructure:"secure"`
	HangTimeout    time.Duration `mapstructure:"hangTimeout"`
	MaxAttempts    int           `mapstructure:"maxAttempts"`
	ReconnectDelay time.Duration `mapstructure:"reconnectDelay"`
	SendRate       float64       `mapstructure:"sendRate"` // Hz
	GhostCapacity  int           `mapstructure:"ghostCapacity"`
	PrefsFile      string        `mapstructure:"prefsFile"`
}

// DefaultClientConfig 默认客户端配置
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Client: ClientSettings{
			Host:           "localhost:1999",
			Room:           "lobby",
			HangTimeout:    3 * time.Second,
			MaxAttempts:    6,
			ReconnectDelay: 3 * time.Second,
			SendRate:       30,
			GhostCapacity:  8,
			PrefsFile:      "marbleparty-prefs.yaml",
		},
		Log: LogSettings{
			Level:   "info",
			Console: true,
		},
	}
}

// Validate 校验客户端配置
func (c *ClientConfig) Validate() error {
	s := c.Client
	if s.Host == "" || s.Room == "" {
		return fmt.Errorf("client.host and client.room must be set")
	}
	if s.HangTimeout <= 0 || s.ReconnectDelay <= 0 {
		return fmt.Errorf("client.hangTimeout and client.reconnectDelay must be positive")
	}
	if s.MaxAttempts < 1 {
		return fmt.Errorf("client.maxAttempts must be at least 1")
	}
	if s.SendRate <= 0 {
		return fmt.Errorf("client.sendRate must be positive")
	}
	if s.GhostCapacity < 1 {
		return fmt.Errorf("client.ghostCapacity must be at least 1")
	}
	return nil
}

// Endpoint 房间连接地址，房间名位于路径中：ws://host/party/<room>
func (s ClientSettings) Endpoint() string {
	scheme := "ws"
	if s.Secure {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: s.Host, Path: "/party/" + s.Room}
	return u.String()
}

// SendInterval 名义发送间隔
func (s ClientSettings) SendInterval() time.Duration {
	return time.Duration(float64(time.Second) / s.SendRate)
}
