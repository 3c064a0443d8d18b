package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "PROSEED_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "workflow")
	requireMkdirAll(t, sub)

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("PROSEED_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("PROSEED_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("PROSEED_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	t.Cleanup(cfg.Unload)

	require.Equal(t, StoreMemory, cfg.Store.Backend)
	require.True(t, cfg.Workflow.CascadeProcessOnReparent)
	require.Equal(t, "localhost:3200", cfg.SocketAddress)
	require.Equal(t, logrus.ErrorLevel, cfg.LogrusLogLevel())
	require.NotNil(t, cfg.Logger())
	require.Contains(t, cfg.Database.Opts, "dbname=proseed")
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "STORE_BACKEND")
}

func TestLoad_RedisStorageNeedsURL(t *testing.T) {
	t.Setenv("RATE_LIMIT_STORAGE", "redis")
	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "RedisURL")
}

func TestLoad_APIPrefix(t *testing.T) {
	t.Setenv("API_PREFIX", "/api/")
	cfg, err := Load()
	require.NoError(t, err)
	t.Cleanup(cfg.Unload)
	require.Equal(t, "/api", cfg.APIPrefix)

	t.Setenv("API_PREFIX", "api")
	_, err = Load()
	require.Error(t, err)
}

func TestDatabaseOptions_DSN(t *testing.T) {
	d := DatabaseOptions{Name: "db", Host: "h", Port: "5433", User: "u", Password: "p"}
	require.Equal(t, "postgres://u:p@h:5433/db?sslmode=disable", d.DSN())
	require.Equal(t, "host=h port=5433 user=u dbname=db password=p sslmode=disable", d.ConnectionString())
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
