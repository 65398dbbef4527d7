package config

import (
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("HOCBAI_TEST_STR", "from-env")

	if got := getEnvOrDefault("HOCBAI_TEST_STR", "fallback"); got != "from-env" {
		t.Errorf("Expected env value, got %q", got)
	}
	if got := getEnvOrDefault("HOCBAI_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"valid integer", "42", 42},
		{"empty", "", 7},
		{"not a number", "ba", 7},
		{"negative", "-1", -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.value != "" {
				t.Setenv("HOCBAI_TEST_INT", tc.value)
			}
			if got := getEnvAsIntOrDefault("HOCBAI_TEST_INT", 7); got != tc.want {
				t.Errorf("Expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestMustGetEnv(t *testing.T) {
	t.Setenv("HOCBAI_TEST_REQUIRED", "secret")
	if got := mustGetEnv("HOCBAI_TEST_REQUIRED"); got != "secret" {
		t.Errorf("Expected 'secret', got %q", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for missing required variable")
		}
	}()
	mustGetEnv("HOCBAI_TEST_MISSING")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hocbai")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("GEMINI_API_KEY", "k")

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected default worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.MaxUploadMB != 10 {
		t.Errorf("Expected default upload cap 10MB, got %d", cfg.MaxUploadMB)
	}
	if cfg.GeminiConcurrentReqs != 5 {
		t.Errorf("Expected default concurrency 5, got %d", cfg.GeminiConcurrentReqs)
	}
}
