package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Fleet    FleetConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string
	AllowOrigins []string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// KafkaConfig holds Kafka connection configuration
type KafkaConfig struct {
	Brokers        []string
	GroupID        string
	IgnitionTopic  string
	ExceptionTopic string
}

// RedisConfig holds the optional device-state cache configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// FleetConfig holds analytics tuning values
type FleetConfig struct {
	// TotalDevices is the configured fleet size used as the incident
	// impact denominator; it is not measured from the input streams.
	TotalDevices int
	// RetainPerDevice bounds the in-memory event log per device.
	RetainPerDevice int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %v", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %v", err)
	}

	totalDevices, err := strconv.Atoi(getEnvOrDefault("FLEET_TOTAL_DEVICES", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid FLEET_TOTAL_DEVICES: %v", err)
	}

	retain, err := strconv.Atoi(getEnvOrDefault("FLEET_RETAIN_PER_DEVICE", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid FLEET_RETAIN_PER_DEVICE: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("SERVER_PORT", "8080"),
			AllowOrigins: []string{
				getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
				"http://localhost:3000",
			},
		},
		Database: DatabaseConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     dbPort,
			Name:     getEnvOrDefault("DB_NAME", "fleetwatch"),
			User:     getEnvOrDefault("DB_USER", "fleetwatch"),
			Password: getEnvOrDefault("DB_PASSWORD", "fleetwatch"),
			SSLMode:  getEnvOrDefault("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:        []string{getEnvOrDefault("KAFKA_BROKERS", "localhost:9092")},
			GroupID:        getEnvOrDefault("KAFKA_GROUP_ID", "fleetwatch-backend"),
			IgnitionTopic:  getEnvOrDefault("KAFKA_IGNITION_TOPIC", "fleet.ignition"),
			ExceptionTopic: getEnvOrDefault("KAFKA_EXCEPTION_TOPIC", "fleet.exceptions"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Fleet: FleetConfig{
			TotalDevices:    totalDevices,
			RetainPerDevice: retain,
		},
	}, nil
}

// GetDatabaseURL returns formatted database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
