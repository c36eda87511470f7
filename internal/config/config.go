package config

import (
	"fmt"
	"os"

	"github.com/go-redis/redis/v8"
)

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// DatabaseDSN builds the MySQL connection string from the environment with
// local development defaults.
func DatabaseDSN() string {
	host := getenv("DB_HOST", "127.0.0.1")
	port := getenv("DB_PORT", "3306")
	user := getenv("DB_USER", "collectiv")
	pass := getenv("DB_PASS", "collectiv")
	name := getenv("DB_NAME", "collectiv")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", user, pass, host, port, name)
}

// ListenAddr is the address the HTTP server binds to.
func ListenAddr() string {
	return getenv("LISTEN_ADDR", ":8080")
}

// ResetToken gates the database reset route. When unset the route refuses
// every request.
func ResetToken() string {
	return os.Getenv("RESET_TOKEN")
}

func NewRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: getenv("REDIS_ADDR", "localhost:6379"),
	})
}
