package config

import (
	"time"

	"github.com/spf13/viper"

	pkgconfig "github.com/rohitgami11/MayaCode/pkg/config"
	"github.com/rohitgami11/MayaCode/pkg/log"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Mongo     MongoConfig
	Consumer  ConsumerConfig
	History   HistoryConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
}

type KafkaConfig struct {
	Brokers             string
	ChatTopic           string `mapstructure:"chat_topic"`
	PersistenceTopic    string `mapstructure:"persistence_topic"`
	GroupID             string `mapstructure:"group_id"`
	Partitions          int
	AutoOffsetReset     string `mapstructure:"auto_offset_reset"`
	MaxPollIntervalMs   int    `mapstructure:"max_poll_interval_ms"`
	SessionTimeoutMs    int    `mapstructure:"session_timeout_ms"`
	HeartbeatIntervalMs int    `mapstructure:"heartbeat_interval_ms"`
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type MongoConfig struct {
	URI              string
	Database         string
	Collection       string
	RetentionSeconds int32 `mapstructure:"retention_seconds"`
}

type ConsumerConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type HistoryConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.chat_topic", "chat-messages")
	v.SetDefault("kafka.persistence_topic", "message-persistence")
	v.SetDefault("kafka.group_id", "mayacode-chat-group")
	v.SetDefault("kafka.partitions", 8)
	v.SetDefault("kafka.auto_offset_reset", "latest")
	v.SetDefault("kafka.max_poll_interval_ms", 300000)
	v.SetDefault("kafka.session_timeout_ms", 45000)
	v.SetDefault("kafka.heartbeat_interval_ms", 3000)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "mayacode")
	v.SetDefault("mongo.collection", "messages")
	v.SetDefault("mongo.retention_seconds", 7776000) // 90 days
	v.SetDefault("consumer.batch_size", 50)
	v.SetDefault("consumer.flush_interval", "2s")
	v.SetDefault("history.cache_ttl", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "mayacode-backend")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.chat_topic", "KAFKA_TOPIC_CHAT_MESSAGES")
	v.BindEnv("kafka.persistence_topic", "KAFKA_TOPIC_MESSAGE_PERSISTENCE")
	v.BindEnv("kafka.group_id", "KAFKA_CONSUMER_GROUP_ID")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("mongo.uri", "MONGO_URI")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Consumer.FlushInterval = parseDuration(v, "consumer.flush_interval", 2*time.Second)
	cfg.History.CacheTTL = parseDuration(v, "history.cache_ttl", 30*time.Second)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
