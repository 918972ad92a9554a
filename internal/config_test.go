package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/daystreams/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Navigation.ReuseCurrentTab != nil {
		t.Error("reuse_current_tab should be unset by default")
	}
}

func TestStreamsConfig_SettingsPathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Streams.SettingsPath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty settings path should fail validation")
	}
}

func TestStreamViewConfig_PageSizeBounds(t *testing.T) {
	for _, size := range []int{0, -1, 201} {
		cfg := StreamViewConfig{PageSize: size}
		if err := cfg.Validate(); err == nil {
			t.Errorf("page size %d should fail validation", size)
		}
	}
	cfg := StreamViewConfig{PageSize: 25}
	if err := cfg.Validate(); err != nil {
		t.Errorf("page size 25 should pass: %v", err)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("DAYSTREAMS_TEST_VAULT", "/tmp/notes")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
vault:
  path: ${DAYSTREAMS_TEST_VAULT}
navigation:
  reuse_current_tab: true
stream_view:
  page_size: 5
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vault.Path != "/tmp/notes" {
		t.Errorf("vault path = %q", cfg.Vault.Path)
	}
	if cfg.Navigation.ReuseCurrentTab == nil || !*cfg.Navigation.ReuseCurrentTab {
		t.Errorf("reuse_current_tab = %v, want true", cfg.Navigation.ReuseCurrentTab)
	}
	if cfg.StreamView.PageSize != 5 {
		t.Errorf("page size = %d, want 5", cfg.StreamView.PageSize)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.App.HTTP.Port)
	}
}
