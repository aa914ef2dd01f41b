package config

import (
	"os"
	"strings"
)

type AppConfig struct {
	// ListenAddr is the websocket gateway bind address.
	ListenAddr string
	// AdminAddr is the admin/status API bind address. Empty disables it.
	AdminAddr string

	// ChatConfigPath is the channel/placeholder settings YAML file.
	ChatConfigPath string
	// PermissionsPath is the static permissions YAML file. Optional.
	PermissionsPath string

	// RedisURL enables Redis-backed player settings persistence when set.
	RedisURL string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:     ":8080",
		AdminAddr:      ":8081",
		ChatConfigPath: "config/chat.yaml",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v, ok := os.LookupEnv("ADMIN_ADDR"); ok {
		cfg.AdminAddr = strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(os.Getenv("CHAT_CONFIG_PATH")); v != "" {
		cfg.ChatConfigPath = v
	}
	cfg.PermissionsPath = strings.TrimSpace(os.Getenv("PERMISSIONS_PATH"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	return cfg, nil
}
