package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string         `yaml:"env" env:"APP_ENV" env-default:"local"`
	ServiceName string         `yaml:"service_name" env:"SERVICE_NAME" env-default:"cash-gateway-service"`
	HTTP        HTTPConfig     `yaml:"http"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Outbox      OutboxConfig   `yaml:"outbox"`
	Retry       RetryConfig    `yaml:"retry"`
	Gateway     GatewayConfig  `yaml:"gateway"`
	Dedup       DedupConfig    `yaml:"dedup"`
}

type HTTPConfig struct {
	Port int `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type PostgresConfig struct {
	Port    string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	Host    string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	DbName  string `yaml:"db_name" env:"POSTGRES_DB"`
	User    string `yaml:"user" env:"POSTGRES_USER"`
	Pwd     string `yaml:"password" env:"POSTGRES_PASSWORD"`
	SslMode string `yaml:"sslmode" env-default:"disable"`
}

type KafkaConfig struct {
	BrokerList        []string          `yaml:"broker_list" env:"KAFKA_BROKERS" env-separator:","`
	ConsumerGroup     string            `yaml:"consumer_group" env-default:"cash-gateway-service"`
	DeadLetterGroup   string            `yaml:"dead_letter_group" env-default:"cash-gateway-service-dlt"`
	PaymentEventTopic string            `yaml:"payment_event_topic" env-default:"payment-events"`
	Topology          TopologyConfig    `yaml:"topology"`
	Subscribes        []TopicEventsList `yaml:"subscribes"`
	Publishes         []TopicEventsList `yaml:"publishes"`
}

// TopologyConfig declares every service and topic known to the cluster.
type TopologyConfig struct {
	Services []ServiceDefinition `yaml:"services"`
	Topics   []TopicDefinition   `yaml:"topics"`
}

type ServiceDefinition struct {
	Name string   `yaml:"name"`
	Owns []string `yaml:"owns"`
}

type TopicDefinition struct {
	Name              string `yaml:"name"`
	Partitions        int    `yaml:"partitions"`
	ReplicationFactor int    `yaml:"replication_factor"`
}

type TopicEventsList struct {
	Topic  string   `yaml:"topic"`
	Events []string `yaml:"events"`
}

type OutboxConfig struct {
	Interval        time.Duration `yaml:"interval" env-default:"1s"`
	BatchSize       int           `yaml:"batch_size" env-default:"100"`
	MaxRetries      int           `yaml:"max_retries" env-default:"3"`
	Retention       time.Duration `yaml:"retention" env-default:"720h"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" env-default:"24h"`
	MetricsPort     int           `yaml:"metrics_port" env:"OUTBOX_METRICS_PORT" env-default:"9091"`
}

// RetryConfig drives consumer redelivery before a message is dead-lettered.
type RetryConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval" env-default:"1s"`
	Multiplier      float64       `yaml:"multiplier" env-default:"2"`
	MaxInterval     time.Duration `yaml:"max_interval" env-default:"10s"`
	MaxRetries      uint64        `yaml:"max_retries" env-default:"3"`
}

type GatewayConfig struct {
	Timeout   time.Duration    `yaml:"timeout" env-default:"10s"`
	Providers []ProviderConfig `yaml:"providers"`
}

type ProviderConfig struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	MerchantID string `yaml:"merchant_id"`
}

type DedupConfig struct {
	CacheSize int           `yaml:"cache_size" env-default:"10000"`
	TTL       time.Duration `yaml:"ttl" env-default:"10m"`
}

func InitConfig() Config {
	configPath := getConfigPath()

	if configPath == "" {
		panic("config path is not set")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		panic("failed to read config: " + err.Error())
	}

	return cfg
}

func Load(path string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
