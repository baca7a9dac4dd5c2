package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testConfig struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Debug bool   `yaml:"debug"`
}

func (c *testConfig) Validate() error {
	if c.Port <= 0 {
		return errors.New("port must be positive")
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

func TestLoad_KeepsDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("TEST_APP_NAME", "petpad")
	p := writeFile(t, "name: ${TEST_APP_NAME}\n")

	cfg := testConfig{Port: 8080}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "petpad" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeFile(t, "port: 0\n")
	cfg := testConfig{Port: 1}
	err := Load(p, &cfg)
	if err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	p := writeFile(t, "port: 1\nprot: 2\n")
	cfg := testConfig{}
	if err := Load(p, &cfg); err == nil {
		t.Fatal("unknown field should fail")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	p := writeFile(t, "")
	cfg := testConfig{Port: 3}
	if err := Load(p, &cfg); err != nil {
		t.Fatalf("empty file should keep defaults: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := testConfig{Port: 1}
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg := testConfig{Port: 1}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	if err != nil || found {
		t.Fatalf("missing = %v, %v", found, err)
	}

	p := writeFile(t, "debug: true\n")
	found, err = LoadOptional(p, &cfg)
	if err != nil || !found || !cfg.Debug {
		t.Fatalf("present = %v, %v, %+v", found, err, cfg)
	}
}
