package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LLMConfig struct {
	Endpoint       string  `mapstructure:"endpoint"`
	Model          string  `mapstructure:"model"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
}

// GuardrailsConfig enumerates the recognized validation options. Unknown
// keys in the file are ignored; missing keys fall back to the defaults set
// in Load.
type GuardrailsConfig struct {
	InputToxicThreshold           float64  `mapstructure:"input_toxic_threshold"`
	OutputToxicThreshold          float64  `mapstructure:"output_toxic_threshold"`
	ToxicGranularity              string   `mapstructure:"toxic_granularity"`
	ModerationEndpoint            string   `mapstructure:"moderation_endpoint"`
	ModerationKey                 string   `mapstructure:"moderation_key"`
	ProfanityFilter               bool     `mapstructure:"profanity_filter"`
	EnablePIIDetection            bool     `mapstructure:"enable_pii_detection"`
	EnableTopicRestriction        bool     `mapstructure:"enable_topic_restriction"`
	EnableInjectionDetection      bool     `mapstructure:"enable_injection_detection"`
	BlockedTopics                 []string `mapstructure:"blocked_topics"`
	TopicClassifierEndpoint       string   `mapstructure:"topic_classifier_endpoint"`
	TopicClassifierModel          string   `mapstructure:"topic_classifier_model"`
	TopicClassifierTimeoutSeconds float64  `mapstructure:"topic_classifier_timeout_seconds"`
}

var globalConfig Config

func Load(configPath string) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// The slice hook lets list settings like blocked_topics arrive as a
	// comma-separated env value.
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&globalConfig, decodeHook); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)

	viper.SetDefault("llm.endpoint", "http://localhost:11434")
	viper.SetDefault("llm.model", "gemma3:latest")
	viper.SetDefault("llm.timeout_seconds", 60.0)

	viper.SetDefault("guardrails.input_toxic_threshold", 0.8)
	viper.SetDefault("guardrails.output_toxic_threshold", 0.9)
	viper.SetDefault("guardrails.toxic_granularity", "full")
	viper.SetDefault("guardrails.profanity_filter", true)
	viper.SetDefault("guardrails.enable_pii_detection", true)
	viper.SetDefault("guardrails.enable_topic_restriction", true)
	viper.SetDefault("guardrails.enable_injection_detection", true)
	viper.SetDefault("guardrails.topic_classifier_endpoint", "http://localhost:11434")
	viper.SetDefault("guardrails.topic_classifier_model", "gemma3:latest")
	viper.SetDefault("guardrails.topic_classifier_timeout_seconds", 5.0)
}

func GetConfig() *Config {
	return &globalConfig
}
