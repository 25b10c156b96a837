package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API    APIConfig    `mapstructure:"api"`
	MySQL  MySQLConfig  `mapstructure:"mysql"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Engine EngineConfig `mapstructure:"engine"`
}

type APIConfig struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	PoolSize int    `mapstructure:"pool_size"`
}

type EngineConfig struct {
	// LogValidationFailures: when true, UnknownBuyer attempts produce a
	// ledger entry; when false they leave no trace in the transaction log.
	LogValidationFailures bool          `mapstructure:"log_validation_failures"`
	CountSyncInterval     time.Duration `mapstructure:"count_sync_interval"`
	HistoryLimit          int           `mapstructure:"history_limit"`
}

// Load reads the YAML file at path, with ALLOCATOR_-prefixed environment
// variables overriding any key (e.g. ALLOCATOR_MYSQL_DSN).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("api.environment", "development")
	v.SetDefault("api.port", "8080")
	v.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/allocator?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("engine.log_validation_failures", false)
	v.SetDefault("engine.count_sync_interval", 30*time.Second)
	v.SetDefault("engine.history_limit", 10)

	v.SetEnvPrefix("ALLOCATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %q -> %w", path, err)
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unmarshal config -> %w", err)
	}

	return &conf, nil
}
