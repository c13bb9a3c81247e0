package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("recall", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(parseFlags(t))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.DB.Driver != "sqlite" || cfg.DB.DSN != "recall.db" {
		t.Errorf("Expected sqlite at recall.db, but got %+v", cfg.DB)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected addr ':8080', but got '%s'", cfg.Server.Addr)
	}
	if cfg.Learner != "default" || cfg.ReposDir != "repos" {
		t.Errorf("Expected default learner and repos dir, but got %+v", cfg)
	}
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	yaml := `
db:
  driver: postgres
  dsn: postgres://localhost/recall
learner: from-file
timezone: Europe/Dublin
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("RECALL_LEARNER", "from-env")
	t.Setenv("RECALL_REPOS_DIR", "/var/lib/recall/repos")
	t.Setenv("RECALL_LOG_FORMAT", "json")

	cfg, err := Load(parseFlags(t, "--config", path, "--log-format", "text", "--addr", "127.0.0.1:9090"))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	testCases := []struct {
		name     string
		got      string
		expected string
	}{
		{"file driver", cfg.DB.Driver, "postgres"},
		{"file dsn", cfg.DB.DSN, "postgres://localhost/recall"},
		{"file timezone", cfg.Timezone, "Europe/Dublin"},
		{"file level", cfg.Log.Level, "debug"},
		{"env overrides file", cfg.Learner, "from-env"},
		{"env underscore key", cfg.ReposDir, "/var/lib/recall/repos"},
		{"flag overrides env", cfg.Log.Format, "text"},
		{"flag", cfg.Server.Addr, "127.0.0.1:9090"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.expected {
				t.Errorf("Expected '%s', but got '%s'", tc.expected, tc.got)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"unknown driver", []string{"--db-driver", "mysql"}},
		{"bad level", []string{"--log-level", "loud"}},
		{"bad format", []string{"--log-format", "xml"}},
		{"bad timezone", []string{"--timezone", "Mars/Olympus"}},
		{"bad addr", []string{"--addr", "nowhere"}},
		{"empty learner", []string{"--learner", ""}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(parseFlags(t, tc.args...)); err == nil {
				t.Error("Expected a validation error, but got nil")
			}
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := Load(parseFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"))); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestNewLogger(t *testing.T) {
	cfg, err := Load(parseFlags(t, "--log-format", "json", "--log-level", "warn"))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	var buf bytes.Buffer
	logger, err := cfg.NewLogger(&buf)
	if err != nil {
		t.Fatalf("NewLogger() returned an unexpected error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "card", "abc")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info to be filtered at warn level, but got %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"card":"abc"`) {
		t.Errorf("Expected a JSON record, but got %s", out)
	}
}
