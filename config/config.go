package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	ShipSync ShipSyncConfig `yaml:"shipsync"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	SyncRequestedTopicName string `yaml:"sync_requested_topic_name"`
	StatusChangedTopicName string `yaml:"status_changed_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ShipSyncConfig struct {
	HTTPAddr              string `yaml:"http_addr"`
	KafkaConsumerGroup    string `yaml:"kafka_consumer_group"`
	CurrentViewTTLSeconds int    `yaml:"current_view_ttl_seconds"`

	// Tracking provider. Mode "fake" runs without an external provider.
	ProviderBaseURL            string `yaml:"provider_base_url"`
	ProviderAPIKey             string `yaml:"provider_api_key"`
	ProviderMode               string `yaml:"provider_mode"` // "trackhub" | "fake"
	ProviderRateLimitPerMinute int    `yaml:"provider_rate_limit_per_minute"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`

	// Re-check scheduling (optional). If not set, defaults are prod-like:
	// shipped: 30..120 minutes, others: 90 minutes, backoff: 5/15/30/60 minutes.
	NextCheckShippedMinSeconds int `yaml:"next_check_shipped_min_seconds"`
	NextCheckShippedMaxSeconds int `yaml:"next_check_shipped_max_seconds"`
	NextCheckDefaultSeconds    int `yaml:"next_check_default_seconds"`
	Backoff1Seconds            int `yaml:"backoff_1_seconds"`
	Backoff2Seconds            int `yaml:"backoff_2_seconds"`
	Backoff3Seconds            int `yaml:"backoff_3_seconds"`
	Backoff4Seconds            int `yaml:"backoff_4_seconds"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
