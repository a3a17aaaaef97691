package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8083")
	p, err := Port("TEST_PORT", "8080")
	if err != nil {
		t.Fatalf("Port failed: %v", err)
	}
	if p != "8083" {
		t.Fatalf("expected 8083, got %s", p)
	}

	t.Setenv("TEST_PORT", "99999")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "x")
	t.Setenv("TEST_BOOL", "yes")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_DURATION_SECS", "5")
	t.Setenv("TEST_LIST", " a, ,b ,c")

	if got := Int("TEST_INT", 1); got != 42 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if !Bool("TEST_BOOL", false) {
		t.Fatal("Bool: expected true")
	}
	if Bool("TEST_UNSET_BOOL", false) {
		t.Fatal("Bool: expected fallback false")
	}
	if got := Duration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("Duration: got %s", got)
	}
	if got := Duration("TEST_DURATION_SECS", time.Second); got != 5*time.Second {
		t.Fatalf("Duration seconds: got %s", got)
	}
	list := List("TEST_LIST", "")
	if len(list) != 3 || list[0] != "a" || list[1] != "b" || list[2] != "c" {
		t.Fatalf("List: got %v", list)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOTENV_ONLY_KEY=from-file\nDOTENV_SET_KEY=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("DOTENV_SET_KEY", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_ONLY_KEY") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("DOTENV_ONLY_KEY"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("DOTENV_SET_KEY"); got != "from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}
