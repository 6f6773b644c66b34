package testharness

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"
)

// BinaryEnv names the environment variable that points at a
// tasknet-devserver binary.
const BinaryEnv = "TASKNET_DEVSERVER_BIN"

// Config holds configuration for starting the test harness.
type Config struct {
	Users      []User
	ListenAddr string
	DBPath     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BinaryPath string
	Quiet      bool
}

// User holds test user credentials.
type User struct {
	Handle   string
	Password string
}

// Harness represents a running tasknet-devserver instance.
type Harness struct {
	BaseURL    string
	APIBase    string
	DBPath     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Users      []User

	// Internal state
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

// outputContract matches the JSON line printed by tasknet-devserver
type outputContract struct {
	BaseURL    string       `json:"base_url"`
	APIBase    string       `json:"api_base"`
	DBPath     string       `json:"db_path"`
	AccessTTL  string       `json:"access_ttl"`
	RefreshTTL string       `json:"refresh_ttl"`
	Users      []outputUser `json:"users"`
}

type outputUser struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

// Start spawns a tasknet-devserver and returns a handle to it. The test is
// skipped when no binary can be found. Cleanup is registered with
// t.Cleanup().
func Start(t *testing.T, cfg Config) *Harness {
	t.Helper()

	binaryPath := findBinary(cfg.BinaryPath)
	if binaryPath == "" {
		t.Skipf("tasknet-devserver binary not found (check PATH or set Config.BinaryPath or %s)", BinaryEnv)
	}

	ctx, cancel := context.WithCancel(context.Background())

	cmd := exec.CommandContext(ctx, binaryPath, buildArgs(cfg)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stdout pipe: %v", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		t.Fatalf("failed to create stderr pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		t.Fatalf("failed to start tasknet-devserver: %v", err)
	}

	// first line of stdout is the contract
	scanner := bufio.NewScanner(stdout)
	if !scanner.Scan() {
		cancel()
		cmd.Wait()
		t.Fatal("failed to read JSON contract from tasknet-devserver")
	}

	harness, err := parseContract(scanner.Bytes())
	if err != nil {
		cancel()
		cmd.Wait()
		t.Fatalf("failed to parse JSON contract: %v", err)
	}
	harness.cmd = cmd
	harness.cancel = cancel

	if !cfg.Quiet {
		go func() {
			for scanner.Scan() {
				t.Logf("[tasknet-devserver] %s", scanner.Text())
			}
		}()

		go func() {
			stderrScanner := bufio.NewScanner(stderr)
			for stderrScanner.Scan() {
				t.Logf("[tasknet-devserver stderr] %s", stderrScanner.Text())
			}
		}()
	}

	t.Cleanup(func() {
		if err := harness.Close(); err != nil {
			t.Logf("warning: harness cleanup failed: %v", err)
		}
	})

	return harness
}

// Close terminates the tasknet-devserver process.
func (h *Harness) Close() error {
	if h.cancel != nil {
		h.cancel()
	}

	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- h.cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		if err := h.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("force kill: %w", err)
		}
		return fmt.Errorf("timeout waiting for graceful shutdown, process killed")
	}
}

func parseContract(line []byte) (*Harness, error) {
	var contract outputContract
	if err := json.Unmarshal(line, &contract); err != nil {
		return nil, err
	}
	if contract.BaseURL == "" || contract.APIBase == "" {
		return nil, fmt.Errorf("contract is missing base_url or api_base")
	}

	accessTTL, err := time.ParseDuration(contract.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("bad access_ttl: %w", err)
	}
	refreshTTL, err := time.ParseDuration(contract.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("bad refresh_ttl: %w", err)
	}

	harness := &Harness{
		BaseURL:    contract.BaseURL,
		APIBase:    contract.APIBase,
		DBPath:     contract.DBPath,
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
		Users:      make([]User, len(contract.Users)),
	}
	for i, user := range contract.Users {
		harness.Users[i] = User{Handle: user.Handle, Password: user.Password}
	}
	return harness, nil
}

func findBinary(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	if envPath := os.Getenv(BinaryEnv); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	if pathBinary, err := exec.LookPath("tasknet-devserver"); err == nil {
		return pathBinary
	}

	return ""
}

func buildArgs(cfg Config) []string {
	var args []string

	if cfg.ListenAddr != "" {
		args = append(args, "--listen", cfg.ListenAddr)
	}

	if cfg.DBPath != "" {
		args = append(args, "--db", cfg.DBPath)
	}

	if cfg.AccessTTL != 0 {
		args = append(args, "--access-ttl", cfg.AccessTTL.String())
	}

	if cfg.RefreshTTL != 0 {
		args = append(args, "--refresh-ttl", cfg.RefreshTTL.String())
	}

	if cfg.Quiet {
		args = append(args, "--quiet")
	}

	for _, user := range cfg.Users {
		args = append(args, "--user", fmt.Sprintf("%s:%s", user.Handle, user.Password))
	}

	return args
}
