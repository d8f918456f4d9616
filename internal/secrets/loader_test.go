package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadPrefersFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key")
	if err := os.WriteFile(path, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	got, err := Load(Source{Name: "api key", File: path, Value: "inline"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-file" {
		t.Fatalf("expected file secret, got %q", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte(" \n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	if _, err := Load(Source{Name: "api key", File: path}); err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestLoadFallsBackToEnv(t *testing.T) {
	t.Setenv("SECRETS_TEST_PRIMARY", "")
	t.Setenv("SECRETS_TEST_SECONDARY", `"quoted-value"`)

	got, err := Load(Source{Name: "api key", Env: []string{"SECRETS_TEST_PRIMARY", "SECRETS_TEST_SECONDARY"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "quoted-value" {
		t.Fatalf("expected quotes to be stripped, got %q", got)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	t.Setenv("SECRETS_TEST_MISSING", "")

	_, err := Load(Source{Name: "api key", Env: []string{"SECRETS_TEST_MISSING"}})
	if err == nil {
		t.Fatal("expected error when secret is missing")
	}
	if !strings.Contains(err.Error(), "SECRETS_TEST_MISSING") {
		t.Fatalf("expected error to mention checked variables, got %v", err)
	}
}
