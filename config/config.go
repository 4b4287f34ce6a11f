package config

import (
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tidechain/matchbook/pkg/db/queue"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		HTTPAddr  string `yaml:"http_addr"`
		LogLevel  string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"server"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		BrokerAddr string `yaml:"broker_addr"`
		Topic      string `yaml:"topic"`
		// Producer selects the publishing client: "sarama" (default) or
		// "kafka-go".
		Producer string `yaml:"producer"`
	} `yaml:"kafka"`

	Otel struct {
		CollectorEnabled bool   `yaml:"collector_enabled"`
		Endpoint         string `yaml:"endpoint"`
	} `yaml:"otel"`
}

// Default configuration values
var (
	configFile = flag.String("config", "", "Path to config file (YAML)")
	httpPort   = flag.Int("http_port", 8080, "The HTTP server port")
	logLevel   = flag.String("log_level", "info", "Log level: debug, info, warn, error")
	logFormat  = flag.String("log_format", "pretty", "Log format: json, pretty")
)

// LoadConfig loads the configuration from command line flags and optionally from a config file
func LoadConfig() (*Config, error) {
	flag.Parse()

	config := &Config{}
	config.Server.HTTPAddr = fmt.Sprintf(":%d", *httpPort)
	config.Server.LogLevel = *logLevel
	config.Server.LogFormat = *logFormat
	config.Redis.Addr = "localhost:6379"
	config.Kafka.BrokerAddr = "localhost:9092"
	config.Kafka.Topic = "matchbook-trades"
	config.Kafka.Producer = "sarama"
	config.Otel.Endpoint = "localhost:4317"

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}

		log.Printf("Loaded configuration from %s", *configFile)
	}

	// Point the queue package at the configured broker.
	queue.SetBrokerList(config.Kafka.BrokerAddr)
	queue.SetTopic(config.Kafka.Topic)

	return config, nil
}
