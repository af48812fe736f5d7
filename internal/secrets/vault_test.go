package secrets_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Strob0t/TravelTime/internal/secrets"
)

func TestNewVault_InitialLoad(t *testing.T) {
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"KEY_A": "val_a", "KEY_B": "val_b"}, nil
	})
	if err != nil {
		t.Fatalf("NewVault failed: %v", err)
	}

	if got := v.Get("KEY_A"); got != "val_a" {
		t.Fatalf("expected 'val_a', got %q", got)
	}
	if got := v.Get("MISSING"); got != "" {
		t.Fatalf("expected empty string for missing key, got %q", got)
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVault_ReloadAndGetter(t *testing.T) {
	callCount := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		callCount++
		switch callCount {
		case 1:
			return map[string]string{"TOKEN": "old"}, nil
		case 2:
			return map[string]string{"TOKEN": "new"}, nil
		default:
			return nil, errors.New("vault unavailable")
		}
	})
	get := v.Getter("TOKEN")

	if got := get(); got != "old" {
		t.Fatalf("expected 'old', got %q", got)
	}
	if err := v.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got := get(); got != "new" {
		t.Fatalf("expected 'new' after reload, got %q", got)
	}

	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := get(); got != "new" {
		t.Fatalf("expected 'new' after failed reload, got %q", got)
	}
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"K": "V"}, nil
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = v.Get("K")
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestVault_Redacted(t *testing.T) {
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"API_KEY": "sk-abcdef123456", "SHORT": "ab"}, nil
	})

	tests := []struct{ key, want string }{
		{"API_KEY", "sk****"},
		{"SHORT", "****"},
		{"MISSING", ""},
	}
	for _, tt := range tests {
		if got := v.Redacted(tt.key); got != tt.want {
			t.Errorf("Redacted(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("TT_TEST_SECRET", "mysecret")
	vals, err := secrets.EnvLoader("TT_TEST_SECRET", "TT_MISSING_SECRET")()
	if err != nil {
		t.Fatalf("EnvLoader failed: %v", err)
	}
	if vals["TT_TEST_SECRET"] != "mysecret" {
		t.Errorf("expected 'mysecret', got %q", vals["TT_TEST_SECRET"])
	}
	if _, ok := vals["TT_MISSING_SECRET"]; ok {
		t.Error("missing variables must be omitted")
	}
}

func TestDotEnvLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	t.Setenv("TT_FILE_KEY", "from-env")
	t.Setenv("TT_ENV_ONLY", "env-only")

	loader := secrets.DotEnvLoader(path, "TT_FILE_KEY", "TT_ENV_ONLY")

	// Missing file falls back to the environment.
	vals, err := loader()
	if err != nil {
		t.Fatalf("loader with missing file: %v", err)
	}
	if vals["TT_FILE_KEY"] != "from-env" {
		t.Fatalf("expected env fallback, got %q", vals["TT_FILE_KEY"])
	}

	if err := os.WriteFile(path, []byte("TT_FILE_KEY=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	v, err := secrets.NewVault(loader)
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if got := v.Get("TT_FILE_KEY"); got != "from-file" {
		t.Fatalf("expected file to win, got %q", got)
	}
	if got := v.Get("TT_ENV_ONLY"); got != "env-only" {
		t.Fatalf("expected env value for key absent from file, got %q", got)
	}

	if err := os.WriteFile(path, []byte("TT_FILE_KEY=rotated\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := v.Get("TT_FILE_KEY"); got != "rotated" {
		t.Fatalf("expected rotated value, got %q", got)
	}
}
