package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Vault string `yaml:"vault"`
	Port  int    `yaml:"port"`
}

var errNoVault = errors.New("vault is required")

func (s *sample) Validate() error {
	if s.Vault == "" {
		return errNoVault
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("DAYSTREAMS_TEST_VAULT", "/tmp/notes")
	p := writeFile(t, "vault: ${DAYSTREAMS_TEST_VAULT}\nport: 9000\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatal(err)
	}
	if s.Vault != "/tmp/notes" || s.Port != 9000 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Validates(t *testing.T) {
	p := writeFile(t, "port: 9000\n")
	var s sample
	if err := Load(p, &s); !errors.Is(err, errNoVault) {
		t.Errorf("err = %v, want errNoVault", err)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	s := sample{Vault: "./vault", Port: 8080}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
	if s.Vault != "./vault" || s.Port != 8080 {
		t.Errorf("defaults changed: %+v", s)
	}

	var empty sample
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &empty); !errors.Is(err, errNoVault) {
		t.Errorf("missing file must still validate, err = %v", err)
	}
}

func TestLoadOptional_ReadsFile(t *testing.T) {
	p := writeFile(t, "vault: ./journal\n")
	s := sample{Port: 8080}
	found, err := LoadOptional(p, &s)
	if err != nil || !found {
		t.Fatalf("found = %v, err = %v", found, err)
	}
	if s.Vault != "./journal" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}
