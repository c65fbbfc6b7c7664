package config

import (
	"os"
	"strconv"
)

// Client holds the settings for the CLI and its API client.
type Client struct {
	APIBaseURL  string
	WSURL       string
	MockMode    bool
	SessionFile string
}

// Server holds the settings for the development backend.
type Server struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	CORSOrigin  string
}

func LoadClient() Client {
	return Client{
		APIBaseURL:  getEnv("API_BASE_URL", "http://localhost:8080"),
		WSURL:       getEnv("WS_URL", "ws://localhost:8080/ws/chat"),
		MockMode:    getEnvBool("MOCK_MODE", false),
		SessionFile: getEnv("SESSION_FILE", defaultSessionFile()),
	}
}

func LoadServer() Server {
	return Server{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:5173"),
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rentmate-session.json"
	}
	return home + "/.rentmate-session.json"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
