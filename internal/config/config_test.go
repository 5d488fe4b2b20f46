package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingOptionalFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), true)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("config = %+v, want defaults %+v", cfg, Defaults())
	}
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Fatal("Load returned nil error, want error")
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `user_id: alice
database:
  path: /tmp/alice.db
notifications:
  inbox_size: 8
log:
  format: json
`)
	t.Setenv("GOALPATH_WEB_ADDR", "127.0.0.1:9000")
	t.Setenv("GOALPATH_NOTIFICATIONS_INBOX_SIZE", "64")

	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.UserID != "alice" {
		t.Fatalf("user_id = %q, want %q", cfg.UserID, "alice")
	}
	if cfg.Database.Path != "/tmp/alice.db" {
		t.Fatalf("database.path = %q, want %q", cfg.Database.Path, "/tmp/alice.db")
	}
	if cfg.Web.Addr != "127.0.0.1:9000" {
		t.Fatalf("web.addr = %q, want env override", cfg.Web.Addr)
	}
	if cfg.Notifications.InboxSize != 64 {
		t.Fatalf("notifications.inbox_size = %d, want %d", cfg.Notifications.InboxSize, 64)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("log.format = %q, want %q", cfg.Log.Format, "json")
	}
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown key", content: "colour: blue\n", want: "colour"},
		{name: "bad format", content: "log:\n  format: xml\n", want: "log.format"},
		{name: "zero inbox", content: "notifications:\n  inbox_size: 0\n", want: "inbox_size"},
		{name: "empty user", content: "user_id: \"\"\n", want: "user_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), false)
			if err == nil {
				t.Fatal("Load returned nil error, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestValidateSettings_Defaults(t *testing.T) {
	t.Parallel()

	settings, err := Defaults().Settings()
	if err != nil {
		t.Fatalf("Settings returned error: %v", err)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("ValidateSettings returned error: %v", err)
	}
}
