package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"better-rail"`

	// Redis 配置，rides 哈希全部存在这里
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:""`

	// 以色列铁路 API 配置
	RailAPIURL     string `env:"RAIL_API_URL" envDefault:"https://israelrail.azurefd.net/rjpa-prod/api/v1"`
	RailAPIKey     string `env:"RAIL_API_KEY"`
	RailProxyURL   string `env:"RAIL_PROXY_URL"` // 可选，境外部署时走 HTTPS 代理
	RailAPITimeout int    `env:"RAIL_API_TIMEOUT_SECONDS" envDefault:"30"`

	// APNs 配置（Live Activity 推送）
	APNsKeyPath  string `env:"APNS_KEY_PATH"`
	APNsKeyID    string `env:"APNS_KEY_ID"`
	APNsTeamID   string `env:"APNS_TEAM_ID"`
	APNsTopic    string `env:"APNS_TOPIC" envDefault:"com.better-rail"`
	PushProvider string `env:"PUSH_PROVIDER" envDefault:"live"` // live, mock

	// FCM 配置
	FCMCredentialsPath string `env:"FCM_CREDENTIALS_PATH"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// Prometheus 指标端口，单独起一个裸 HTTP 监听
	MetricsPort string `env:"METRICS_PORT" envDefault:"9095"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPM     int  `env:"RATE_LIMIT_RPM" envDefault:"120"` // 每分钟请求数
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}

	validateConfig()
}

func validateConfig() {
	if Cfg.RailAPIKey == "" {
		log.Printf("WARN: RAIL_API_KEY is not set, rail API requests will be rejected upstream")
	}

	if Cfg.PushProvider == "live" {
		if Cfg.APNsKeyPath == "" || Cfg.APNsKeyID == "" || Cfg.APNsTeamID == "" {
			log.Printf("WARN: APNs credentials are incomplete, iOS push will not work")
		}
		if Cfg.FCMCredentialsPath == "" {
			log.Printf("WARN: FCM_CREDENTIALS_PATH is not set, Android push will not work")
		}
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
