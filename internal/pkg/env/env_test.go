package env

import "testing"

func TestGetEnvPrecedence(t *testing.T) {
	t.Setenv("ENV_TEST_KEY", "from-os")
	Env = map[string]string{"ENV_TEST_KEY": "from-file"}
	defer func() { Env = nil }()

	if got := GetEnv("ENV_TEST_KEY", "default"); got != "from-file" {
		t.Fatalf("loaded file must win, got %q", got)
	}

	Env = nil
	if got := GetEnv("ENV_TEST_KEY", "default"); got != "from-os" {
		t.Fatalf("process environment must win over the default, got %q", got)
	}

	if got := GetEnv("ENV_TEST_ABSENT", "default"); got != "default" {
		t.Fatalf("expected default for an unset key, got %q", got)
	}
}

func TestSetupEnvFileWithoutFile(t *testing.T) {
	Env = nil
	// No .env exists when running from the package directory; the process
	// environment alone must be enough.
	SetupEnvFile()
	if Env != nil {
		t.Fatalf("expected no env map without a file, got %v", Env)
	}
}
