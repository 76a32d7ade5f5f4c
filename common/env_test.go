package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("FLAGON_TEST_PLAIN", "value")

	if got := GetEnv("FLAGON_TEST_PLAIN", "fallback"); got != "value" {
		t.Errorf("GetEnv() - wanted: %q but got: %q", "value", got)
	}
	if got := GetEnv("FLAGON_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv() - wanted fallback %q but got: %q", "fallback", got)
	}
}

func TestGetEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FLAGON_TEST_SECRET_FILE", path)

	if got := GetEnv("FLAGON_TEST_SECRET", "fallback"); got != "from-file" {
		t.Errorf("GetEnv() via _FILE - wanted: %q but got: %q", "from-file", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("FLAGON_TEST_INT", "5001")

	if got := GetEnvInt("FLAGON_TEST_INT", 5000); got != 5001 {
		t.Errorf("GetEnvInt() - wanted: %d but got: %d", 5001, got)
	}
	if got := GetEnvInt("FLAGON_TEST_INT_UNSET", 5000); got != 5000 {
		t.Errorf("GetEnvInt() - wanted fallback %d but got: %d", 5000, got)
	}
}

func TestGetEnvBool(t *testing.T) {
	testCases := []struct {
		Value    string
		Fallback bool
		Want     bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"0", true, false},
		{"false", true, false},
		{"", true, true},
		{"notabool", false, false},
	}

	for _, testCase := range testCases {
		if testCase.Value != "" {
			t.Setenv("FLAGON_TEST_BOOL", testCase.Value)
		} else {
			os.Unsetenv("FLAGON_TEST_BOOL")
		}

		if got := GetEnvBool("FLAGON_TEST_BOOL", testCase.Fallback); got != testCase.Want {
			t.Errorf("GetEnvBool() for %q - wanted: %v but got: %v", testCase.Value, testCase.Want, got)
		}
	}
}

func TestGetEnvDuration(t *testing.T) {
	testCases := []struct {
		Value string
		Want  time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"45", 45 * time.Second},
	}

	for _, testCase := range testCases {
		t.Setenv("FLAGON_TEST_DURATION", testCase.Value)

		if got := GetEnvDuration("FLAGON_TEST_DURATION", time.Second); got != testCase.Want {
			t.Errorf("GetEnvDuration() for %q - wanted: %v but got: %v", testCase.Value, testCase.Want, got)
		}
	}

	os.Unsetenv("FLAGON_TEST_DURATION")
	if got := GetEnvDuration("FLAGON_TEST_DURATION", time.Second); got != time.Second {
		t.Errorf("GetEnvDuration() - wanted fallback %v but got: %v", time.Second, got)
	}
}
