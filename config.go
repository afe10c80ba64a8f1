package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server          string        `yaml:"server"`
	Database        string        `yaml:"database"`
	Dsn             string        `yaml:"dsn"`
	Cache           bool          `yaml:"cache"`
	Translations    string        `yaml:"translations"`
	Language        string        `yaml:"language"`
	WriteCooldown   time.Duration `yaml:"write_cooldown"`
	ItemsPerPage    int           `yaml:"items_per_page"`
	DefaultTemplate string        `yaml:"default_template"`
	Title           string        `yaml:"title"`
	Description     string        `yaml:"description"`
	AuthorName      string        `yaml:"author_name"`
	AuthorEmail     string        `yaml:"author_email"`
}

func NewConfig() *Config {
	return &Config{
		Server:          ":8080",
		Database:        "sqlite",
		Dsn:             "./db/engine.sqlite",
		Translations:    "./translations",
		Language:        "en",
		WriteCooldown:   10 * time.Second,
		ItemsPerPage:    100,
		DefaultTemplate: "default",
		Title:           "cmsnode",
	}
}

// Load reads the optional YAML file named by -config, then applies the
// remaining flags on top of it.
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSet("cmsnode", flag.ContinueOnError)
	file := fs.String("config", "", "YAML configuration file")
	server := fs.String("server", "", "listen address")
	db := fs.String("database", "", "database backend: memory, sqlite, postgres or dynamo")
	dsn := fs.String("dsn", "", "database connection string")
	cache := fs.Bool("cache", false, "cache node reads in memory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file != "" {
		if err := c.LoadFile(*file); err != nil {
			return err
		}
	}
	if *server != "" {
		c.Server = *server
	}
	if *db != "" {
		c.Database = *db
	}
	if *dsn != "" {
		c.Dsn = *dsn
	}
	if *cache {
		c.Cache = true
	}
	return c.validate()
}

func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.ItemsPerPage <= 0 {
		return fmt.Errorf("items_per_page must be positive, got %d", c.ItemsPerPage)
	}
	if c.WriteCooldown < 0 {
		return fmt.Errorf("write_cooldown must not be negative, got %s", c.WriteCooldown)
	}
	return nil
}
