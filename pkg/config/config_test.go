package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Sync.DBPath != "sync.db" {
		t.Errorf("Expected default db path sync.db, got %s", config.Sync.DBPath)
	}
	if config.Sync.MaxBackups != 10 {
		t.Errorf("Expected default max backups 10, got %d", config.Sync.MaxBackups)
	}
	if config.Download.Workers != 8 {
		t.Errorf("Expected default workers 8, got %d", config.Download.Workers)
	}
	if config.Download.Dir != "./downloads" {
		t.Errorf("Expected default download dir ./downloads, got %s", config.Download.Dir)
	}
	if config.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("Expected default requests per minute 60, got %d", config.RateLimit.RequestsPerMinute)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
pixiv:
  refresh_token: file-token
sync:
  db: /data/sync.db
  authors:
    - "12345"
    - "https://www.pixiv.net/users/678"
  favourites:
    - public
  max_backups: 5
filter:
  excludes:
    tags:
      - nsfw
download:
  dir: /data/downloads
  workers: 4
  timeout: 30s
`
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Pixiv.RefreshToken != "file-token" {
		t.Errorf("Expected refresh token from file, got %s", config.Pixiv.RefreshToken)
	}
	if config.Sync.DBPath != "/data/sync.db" {
		t.Errorf("Expected db path /data/sync.db, got %s", config.Sync.DBPath)
	}
	if len(config.Sync.Authors) != 2 {
		t.Errorf("Expected 2 authors, got %v", config.Sync.Authors)
	}
	if got := config.Filter.Excludes["tags"]; len(got) != 1 || got[0] != "nsfw" {
		t.Errorf("Expected exclude tags [nsfw], got %v", got)
	}
	if config.Download.Workers != 4 {
		t.Errorf("Expected workers 4, got %d", config.Download.Workers)
	}
	if config.Download.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", config.Download.Timeout)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Loaded config must validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("PIXIVSYNC_REFRESH_TOKEN", "env-token")
	os.Setenv("PIXIVSYNC_DB", "/env/sync.db")
	os.Setenv("PIXIVSYNC_DOWNLOAD_DIR", "/env/downloads")
	os.Setenv("PIXIVSYNC_DOWNLOAD_WORKERS", "3")
	os.Setenv("PIXIVSYNC_LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("PIXIVSYNC_REFRESH_TOKEN")
		os.Unsetenv("PIXIVSYNC_DB")
		os.Unsetenv("PIXIVSYNC_DOWNLOAD_DIR")
		os.Unsetenv("PIXIVSYNC_DOWNLOAD_WORKERS")
		os.Unsetenv("PIXIVSYNC_LOG_LEVEL")
	}()

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.Pixiv.RefreshToken != "env-token" {
		t.Errorf("Expected env refresh token, got %s", config.Pixiv.RefreshToken)
	}
	if config.Sync.DBPath != "/env/sync.db" {
		t.Errorf("Expected env db path, got %s", config.Sync.DBPath)
	}
	if config.Download.Dir != "/env/downloads" {
		t.Errorf("Expected env download dir, got %s", config.Download.Dir)
	}
	if config.Download.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", config.Download.Workers)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected debug log level, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvInvalidWorkers(t *testing.T) {
	os.Setenv("PIXIVSYNC_DOWNLOAD_WORKERS", "many")
	defer os.Unsetenv("PIXIVSYNC_DOWNLOAD_WORKERS")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	if err == nil {
		t.Fatal("Expected error for non-numeric worker count")
	}
	if !strings.Contains(err.Error(), "PIXIVSYNC_DOWNLOAD_WORKERS") {
		t.Errorf("Expected error to name the variable, got %v", err)
	}
	if config.Download.Workers != DefaultConfig().Download.Workers {
		t.Errorf("Workers must stay at the default, got %d", config.Download.Workers)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown favourite",
			mutate:  func(c *Config) { c.Sync.Favourites = []string{"friends"} },
			wantErr: "unknown favourite type",
		},
		{
			name: "unknown include key",
			mutate: func(c *Config) {
				c.Filter.Includes = map[string][]string{"titles": {"x"}}
			},
			wantErr: "unknown include rule key",
		},
		{
			name: "unknown exclude key",
			mutate: func(c *Config) {
				c.Filter.Excludes = map[string][]string{"sizes": {"x"}}
			},
			wantErr: "unknown exclude rule key",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Sync.DBPath = "" },
			wantErr: "database path",
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Download.Workers = 0 },
			wantErr: "workers",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "log level",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.Sync.DBPath = ""
	config.Download.Workers = 0
	config.Logging.Level = "verbose"

	err := config.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"database path", "workers", "log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected joined error to mention %q, got %v", want, err)
		}
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	config := DefaultConfig()
	config.Sync.Authors = []string{"12345"}
	config.Filter.Excludes = map[string][]string{"tags": {"nsfw"}}

	if err := config.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := DefaultConfig()
	if err := reloaded.LoadFromFile(path); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(reloaded.Sync.Authors) != 1 || reloaded.Sync.Authors[0] != "12345" {
		t.Errorf("Authors = %v", reloaded.Sync.Authors)
	}
	if got := reloaded.Filter.Excludes["tags"]; len(got) != 1 || got[0] != "nsfw" {
		t.Errorf("Excludes = %v", reloaded.Filter.Excludes)
	}
}
