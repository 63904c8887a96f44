package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvLine(t *testing.T) {
	cases := []struct {
		line     string
		key, val string
		ok       bool
	}{
		{"DATABASE_URL=postgres://x", "DATABASE_URL", "postgres://x", true},
		{"export GR_BATCH_SIZE=5", "GR_BATCH_SIZE", "5", true},
		{`QUOTED="hello world"`, "QUOTED", "hello world", true},
		{"SINGLE='one two'", "SINGLE", "one two", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"no-equals-sign", "", "", false},
		{"=orphan", "", "", false},
	}
	for _, tc := range cases {
		key, val, ok := parseEnvLine(tc.line)
		if key != tc.key || val != tc.val || ok != tc.ok {
			t.Errorf("parseEnvLine(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.line, key, val, ok, tc.key, tc.val, tc.ok)
		}
	}
}

func TestLoadEnvFilesDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "GR_DOTENV_KEEP=from-file\nGR_DOTENV_NEW=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("GR_DOTENV_KEEP", "from-env")
	os.Unsetenv("GR_DOTENV_NEW")
	t.Cleanup(func() { os.Unsetenv("GR_DOTENV_NEW") })

	loadEnvFiles(path, filepath.Join(t.TempDir(), "missing.env"))

	if got := os.Getenv("GR_DOTENV_KEEP"); got != "from-env" {
		t.Errorf("GR_DOTENV_KEEP = %q, want the existing value kept", got)
	}
	if got := os.Getenv("GR_DOTENV_NEW"); got != "from-file" {
		t.Errorf("GR_DOTENV_NEW = %q, want loaded from file", got)
	}
}
