package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("missing config file should not error: %v", err)
	}
	if cfg.Runtime.StackSizeBytes != DefaultStackSize {
		t.Fatalf("expected default stack size, got %d", cfg.Runtime.StackSizeBytes)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arnm.toml")
	contents := "[runtime]\nworkers = 4\nmailbox_overflow = \"drop\"\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.Runtime.Workers != 4 {
		t.Fatalf("expected workers=4, got %d", cfg.Runtime.Workers)
	}
	if cfg.Runtime.MailboxOverflow != "drop" {
		t.Fatalf("expected mailbox_overflow=drop, got %s", cfg.Runtime.MailboxOverflow)
	}
	if cfg.Runtime.StackSizeBytes != DefaultStackSize {
		t.Fatalf("expected unset fields to keep defaults, got %d", cfg.Runtime.StackSizeBytes)
	}
}

func TestValidateRejectsBadOverflowPolicy(t *testing.T) {
	cfg := Default()
	cfg.Runtime.MailboxOverflow = "explode"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected an error for an invalid overflow policy")
	}
}
