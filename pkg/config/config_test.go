package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port == 0 {
		return errors.New("port is required")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("DIAGREPLAY_TEST_NAME", "replay")
	path := writeConfig(t, "name: ${DIAGREPLAY_TEST_NAME}\nport: 9200\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "replay" || s.Port != 9200 {
		t.Errorf("got %+v", s)
	}
}

func TestLoadRunsValidator(t *testing.T) {
	path := writeConfig(t, "name: x\n")

	var s sample
	err := Load(path, &s)
	if err == nil || !strings.Contains(err.Error(), "port is required") {
		t.Fatalf("err = %v, want validation failure", err)
	}
}

func TestLoadIfExists_Missing(t *testing.T) {
	s := sample{Name: "default"}
	ok, err := LoadIfExists(filepath.Join(t.TempDir(), "absent.yaml"), &s)
	if err != nil {
		t.Fatalf("LoadIfExists: %v", err)
	}
	if ok {
		t.Error("missing file reported as loaded")
	}
	if s.Name != "default" {
		t.Errorf("target modified: %+v", s)
	}
}

func TestLoadIfExists_Present(t *testing.T) {
	path := writeConfig(t, "port: 8080\n")

	var s sample
	ok, err := LoadIfExists(path, &s)
	if err != nil || !ok {
		t.Fatalf("ok = %v, err = %v", ok, err)
	}
	if s.Port != 8080 {
		t.Errorf("port = %d", s.Port)
	}
}
