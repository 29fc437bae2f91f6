package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"bemisreg-backend/lib/configutil"
	"bemisreg-backend/lib/telemetry"
	"bemisreg-backend/services/extraction"
)

type DatabaseConfig struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

type Config struct {
	HttpPort   int               `json:"http_port"`
	BaseUrl    string            `json:"base_url"`
	StaticDir  string            `json:"static_dir"`
	Database   DatabaseConfig    `json:"database"`
	Extraction extraction.Config `json:"extraction"`
	Telemetry  telemetry.Config  `json:"telemetry"`
}

func MustLoadConfig(path string) Config {
	config, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults", "path", path)
	} else if err != nil {
		slog.Error("failed to read config file", "path", path, "err", err.Error())
		os.Exit(1)
	}

	if config.HttpPort == 0 {
		config.HttpPort = 3000
	}
	if config.BaseUrl == "" {
		config.BaseUrl = "https://portal.bemis.com.ng"
	}
	if config.StaticDir == "" {
		config.StaticDir = "./public"
	}
	if config.Database.File == "" && config.Database.Url == "" {
		config.Database.File = "bemisreg.db"
	}

	return config
}

func OpenDB(config DatabaseConfig) (*sql.DB, error) {
	if config.Url == "" {
		return sql.Open("sqlite", fmt.Sprintf("file:%s", config.File))
	}
	if config.AuthToken != "" {
		return sql.Open("libsql", fmt.Sprintf(
			"%s?authToken=%s", config.Url, config.AuthToken,
		))
	}
	return sql.Open("libsql", config.Url)
}
