package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Market   Market   `mapstructure:"market"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// InstrumentConfig describes one simulated instrument.
type InstrumentConfig struct {
	Symbol     string  `mapstructure:"symbol"`
	StartPrice float64 `mapstructure:"start_price"`
	Volatility float64 `mapstructure:"volatility"` // max perturbation per tick, symmetric
}

// Market holds the configuration for the price simulator.
type Market struct {
	TickInterval int                `mapstructure:"tick_interval"` // seconds
	HistorySize  int                `mapstructure:"history_size"`
	PriceFloor   float64            `mapstructure:"price_floor"`
	Instruments  []InstrumentConfig `mapstructure:"instruments"`
}

// Trading holds the configuration for the portfolio ledger.
type Trading struct {
	StartingBalance float64 `mapstructure:"starting_balance"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the snapshot database.
// An empty DSN selects the in-memory snapshot store instead.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("market.tick_interval", 2)
	viper.SetDefault("market.history_size", 10)
	viper.SetDefault("market.price_floor", 0.01)
	viper.SetDefault("trading.starting_balance", 10000)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("server.port", 8080)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
