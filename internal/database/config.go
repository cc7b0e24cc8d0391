package database

import (
	"fmt"

	"fintrack/internal/config"
)

// Driver selects the SQL backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Config holds database configuration
type Config struct {
	Driver   Driver
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	// SQLitePath is the database file used when Driver is sqlite.
	SQLitePath string

	// LogQueries enables gorm's SQL logger.
	LogQueries bool
}

// NewConfig derives the database configuration from the application configuration.
func NewConfig(app *config.Config) *Config {
	return &Config{
		Driver:     Driver(app.DBDriver),
		Host:       app.DBHost,
		Port:       app.DBPort,
		User:       app.DBUser,
		Password:   app.DBPassword,
		DBName:     app.DBName,
		SSLMode:    app.DBSSLMode,
		SQLitePath: app.SQLitePath,
		LogQueries: app.Env == "development",
	}
}

// DSN returns the PostgreSQL connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
