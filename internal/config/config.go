package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Payment  PaymentConfig  `mapstructure:"payment"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	StallNotify    string `mapstructure:"stall_notify"`
	CustomerNotify string `mapstructure:"customer_notify"`
}

type BusinessConfig struct {
	OrderNoMaxRetries int `mapstructure:"order_no_max_retries"` // 订单号生成重试次数上限
	MaxRetryCount     int `mapstructure:"max_retry_count"`      // outbox 消息最大重试次数
	MenuCacheSeconds  int `mapstructure:"menu_cache_seconds"`   // 菜品缓存过期时间（秒）
}

// PaymentConfig 收款商户配置
// MerchantUEN 是 PayNow 收款方的企业注册号
// WebhookSecret 用于校验支付渠道回调的 HMAC 签名
type PaymentConfig struct {
	MerchantUEN   string `mapstructure:"merchant_uen"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	return config
}
