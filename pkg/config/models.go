package config

import "time"

type Config struct {
	Server    ServerConfig
	Transport TransportConfig
	Store     StoreConfig
	Log       LogConfig
}

type ServerConfig struct {
	Address         string
	Auth            AuthConfig
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	SendBuffer  int           `mapstructure:"sendBuffer"`
}

type StoreConfig struct {
	MongoURI string `mapstructure:"mongoUri"`
	Database string `mapstructure:"database"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}
