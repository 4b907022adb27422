// Package config loads the control plane's configuration from environment
// variables, following the getEnv(name, default)-with-fallback idiom the
// host manager's main() uses.
package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	ListenAddr     string
	DatabaseURL    string
	DockerSocket   string
	NamePrefix     string // managed game-container name prefix
	ComposeProject string // orchestration-project label scoping

	BotAPIKey         string
	DiscordWebhookURL string
	DiscordAPIBaseURL string
	DiscordBotToken   string
	RabbitMQURL       string

	DataDir    string
	BackupRoot string
	PublicURL  string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	SessionSecret    string

	JSONLogs bool
}

// Load reads Config from the environment, applying sensible defaults for
// every optional field.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DockerSocket:      getEnv("DOCKER_SOCKET", "/var/run/docker.sock"),
		NamePrefix:        getEnv("CONTAINER_NAME_PREFIX", "game-panel-"),
		ComposeProject:    getEnv("COMPOSE_PROJECT_NAME", "panel"),
		BotAPIKey:         os.Getenv("BOT_API_KEY"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordAPIBaseURL: os.Getenv("DISCORD_API_BASE_URL"),
		DiscordBotToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		DataDir:           getEnv("DATA_DIR", "/data"),
		BackupRoot:        getEnv("BACKUP_ROOT", "/backups"),
		PublicURL:         getEnv("PUBLIC_URL", ""),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("S3_SECRET_KEY"),
		OIDCIssuer:        os.Getenv("OIDC_ISSUER"),
		OIDCClientID:      os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret:  os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:   os.Getenv("OIDC_REDIRECT_URL"),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		JSONLogs:          getBool("JSON_LOGS", false),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
