package config

import (
	"os"
)

// Config carries the CLI defaults. Flags override everything here.
type Config struct {
	CatalogPath string
	Dialect     string
	Source      string
	DatabaseURL string
}

func Load() *Config {
	catalog := os.Getenv("SAIQL_CATALOG")
	if catalog == "" {
		catalog = "catalog.yaml"
	}

	dialect := os.Getenv("SAIQL_DIALECT")
	if dialect == "" {
		dialect = "postgres"
	}

	source := os.Getenv("SAIQL_SOURCE")
	if source == "" {
		source = "postgres"
	}

	return &Config{
		CatalogPath: catalog,
		Dialect:     dialect,
		Source:      source,
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
}
