package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Load(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server: ":9090"
database: postgres
dsn: "postgres://localhost/cms"
write_cooldown: 30s
items_per_page: 25
title: Site
`), 0o644))

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, c *Config)
	}{
		{
			name: "defaults",
			args: nil,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, NewConfig(), c)
			},
		},
		{
			name: "file",
			args: []string{"-config", file},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, ":9090", c.Server)
				assert.Equal(t, "postgres", c.Database)
				assert.Equal(t, 30*time.Second, c.WriteCooldown)
				assert.Equal(t, 25, c.ItemsPerPage)
				assert.Equal(t, "Site", c.Title)
				assert.Equal(t, "en", c.Language)
			},
		},
		{
			name: "flags override the file",
			args: []string{"-config", file, "-database", "memory", "-cache"},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "memory", c.Database)
				assert.True(t, c.Cache)
				assert.Equal(t, ":9090", c.Server)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			require.NoError(t, c.Load(tt.args))
			tt.check(t, c)
		})
	}
}

func TestConfig_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("items_per_page: 0\n"), 0o644))

	assert.Error(t, NewConfig().Load([]string{"-config", filepath.Join(dir, "missing.yaml")}))
	assert.Error(t, NewConfig().Load([]string{"-config", bad}))
	assert.Error(t, NewConfig().Load([]string{"-unknown"}))
}

func TestListenAddress(t *testing.T) {
	c := NewConfig()
	t.Setenv("PORT", "")
	assert.Equal(t, ":8080", listenAddress(c))
	t.Setenv("PORT", "5000")
	assert.Equal(t, ":5000", listenAddress(c))
	t.Setenv("PORT", "127.0.0.1:5000")
	assert.Equal(t, "127.0.0.1:5000", listenAddress(c))
}
