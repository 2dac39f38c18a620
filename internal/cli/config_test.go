package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ppiankov/truescope/internal/model"
)

func loadFrom(t *testing.T, file string) *model.Config {
	t.Helper()
	v := viper.New()
	if err := configure(v, file); err != nil {
		t.Fatalf("configure: %v", err)
	}
	cfg, err := decodeConfig(v)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return cfg
}

func TestConfig_Hierarchy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `server:
  listen: ":9000"
enrich:
  timeout: 2s
  cache:
    dir: /tmp/truescope-cache
rate_limit:
  burst: 50
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRUESCOPE_AUTH_JWT_SECRET", "from-env")
	t.Setenv("TRUESCOPE_RATE_LIMIT_BURST", "7")
	t.Setenv("TRUESCOPE_ENRICH_ENABLED", "false")

	cfg := loadFrom(t, path)

	if cfg.Server.Listen != ":9000" {
		t.Errorf("expected listen from file, got %q", cfg.Server.Listen)
	}
	if cfg.Enrich.Timeout != 2*time.Second {
		t.Errorf("expected timeout from file, got %v", cfg.Enrich.Timeout)
	}
	if cfg.Enrich.Cache.Dir != "/tmp/truescope-cache" {
		t.Errorf("expected nested key from file, got %q", cfg.Enrich.Cache.Dir)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("expected secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.RateLimit.Burst != 7 {
		t.Errorf("expected env to beat file, got burst %d", cfg.RateLimit.Burst)
	}
	if cfg.Enrich.Enabled {
		t.Error("expected enrich disabled from env")
	}
	if cfg.Store.Path != "truescope.db" {
		t.Errorf("expected default store path, got %q", cfg.Store.Path)
	}
	if cfg.Enrich.Cache.TTL != 6*time.Hour {
		t.Errorf("expected default cache ttl, got %v", cfg.Enrich.Cache.TTL)
	}
}

func TestConfig_InitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := initConfigFile(path); err != nil {
		t.Fatalf("init: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	if got := loadFrom(t, path); !reflect.DeepEqual(got, model.DefaultConfig()) {
		t.Errorf("expected written defaults to load back unchanged:\n got %+v\nwant %+v", got, model.DefaultConfig())
	}

	if err := initConfigFile(path); err == nil {
		t.Error("expected init to refuse overwriting an existing file")
	}
}

func TestWriteConfig_Redacted(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Auth.JWTSecret = "super-secret"

	var buf bytes.Buffer
	if err := writeConfig(&buf, redact(cfg)); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	if strings.Contains(out, "super-secret") {
		t.Error("secret leaked into config output")
	}
	if !strings.Contains(out, "jwt_secret: '********'") && !strings.Contains(out, `jwt_secret: "********"`) {
		t.Errorf("expected redacted secret, got:\n%s", out)
	}
	if !strings.Contains(out, "timeout: 5s") {
		t.Errorf("expected durations rendered as strings, got:\n%s", out)
	}
	if cfg.Auth.JWTSecret != "super-secret" {
		t.Error("redact must not modify its argument")
	}
}
