//go:build integration
// +build integration

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bulkctl/bulkctl/internal/domain"
	"github.com/bulkctl/bulkctl/internal/mock"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// BuildBinary builds the CLI binary once for all tests
func BuildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		binaryPath = filepath.Join(os.TempDir(), "bulkctl-test")
		if os.Getenv("GOOS") == "windows" {
			binaryPath += ".exe"
		}

		cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/bulkctl")
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("failed to build binary: %v\nOutput: %s", err, output)
		}
	})

	if buildErr != nil {
		t.Fatalf("Failed to build binary: %v", buildErr)
	}
	return binaryPath
}

// CommandResult represents the result of running a command
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Error    error
}

// RunCommand executes the CLI with the given environment, stdin and arguments
func RunCommand(t *testing.T, env map[string]string, stdin string, args ...string) *CommandResult {
	t.Helper()

	cmd := exec.Command(BuildBinary(t), args...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := runWithTimeout(cmd, 30*time.Second)
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	return &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
		Error:    err,
	}
}

func runWithTimeout(cmd *exec.Cmd, timeout time.Duration) error {
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-time.After(timeout):
		_ = cmd.Process.Kill()
		return fmt.Errorf("command timed out after %v", timeout)
	case err := <-done:
		return err
	}
}

// SetupTestEnv starts an items API and returns the environment that points the CLI at it
func SetupTestEnv(t *testing.T, items []domain.Item) (map[string]string, *mock.Server) {
	t.Helper()

	srv := mock.NewServer(items)
	t.Cleanup(srv.Close)

	home := t.TempDir()
	env := map[string]string{
		"HOME":                       home,
		"XDG_CONFIG_HOME":            filepath.Join(home, ".config"),
		"BULKCTL_API_URL":            srv.URL,
		"BULKCTL_API_KEY":            "test-key-1234567890",
		"BULKCTL_BULK_POLL_INTERVAL": "10ms",
		"NO_COLOR":                   "true",
	}
	return env, srv
}

// AssertContains checks if the output contains expected string
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("Expected output to contain %q\nActual output:\n%s", expected, truncate(output, 500))
	}
}

// AssertExitCode checks if the command exited with expected code
func AssertExitCode(t *testing.T, result *CommandResult, expected int) {
	t.Helper()
	if result.ExitCode != expected {
		t.Errorf("Expected exit code %d, got %d\nStdout:\n%s\nStderr:\n%s",
			expected, result.ExitCode, result.Stdout, result.Stderr)
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
