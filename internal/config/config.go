package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置（推送通知通道）
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	TopicPrefix string // 每用户主题前缀，如 "relief/notify/"
}

// SMTPConfig 邮件通知通道配置
type SMTPConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Config 服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	SMTP     SMTPConfig

	HTTP struct {
		Addr string
	}

	// 告警分发配置
	Dispatch struct {
		FanoutWorkers  int // 并发发送上限，默认 8
		SendTimeoutSec int // 单个接收者发送超时（秒），默认 10
		StreamKey      string // 告警事件流，默认 "alerts:events"
	}

	// 认捐对账配置
	Reconcile struct {
		LockKeyPrefix  string // 每报告锁键前缀，默认 "relief:report-lock:"
		LockTTLSec     int    // 锁 TTL（秒），默认 10
		LockRetryMs    int    // 获取锁的重试间隔（毫秒），默认 50
		LockWaitMs     int    // 获取锁的最长等待（毫秒），默认 3000
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量覆盖默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "relief")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "relief-coordinator")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "relief/notify/")

	cfg.SMTP.Enabled = getEnv("SMTP_ENABLED", "false") == "true"
	cfg.SMTP.Host = getEnv("SMTP_HOST", "localhost")
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", 587)
	cfg.SMTP.Username = getEnv("SMTP_USERNAME", "")
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", "")
	cfg.SMTP.From = getEnv("SMTP_FROM", "Disaster Management <noreply@disastermanage.com>")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Dispatch.FanoutWorkers = getEnvInt("DISPATCH_FANOUT_WORKERS", 8)
	cfg.Dispatch.SendTimeoutSec = getEnvInt("DISPATCH_SEND_TIMEOUT", 10)
	cfg.Dispatch.StreamKey = getEnv("DISPATCH_STREAM_KEY", "alerts:events")

	cfg.Reconcile.LockKeyPrefix = getEnv("RECONCILE_LOCK_PREFIX", "relief:report-lock:")
	cfg.Reconcile.LockTTLSec = getEnvInt("RECONCILE_LOCK_TTL", 10)
	cfg.Reconcile.LockRetryMs = getEnvInt("RECONCILE_LOCK_RETRY_MS", 50)
	cfg.Reconcile.LockWaitMs = getEnvInt("RECONCILE_LOCK_WAIT_MS", 3000)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
