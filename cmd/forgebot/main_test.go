package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forgebot/forgebot/internal/config"
)

func captureOutputWithExitCode(t *testing.T, run func() int) (int, string, string) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stdout failed: %v", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe stderr failed: %v", err)
	}

	os.Stdout = stdoutW
	os.Stderr = stderrW

	code := run()

	_ = stdoutW.Close()
	_ = stderrW.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	stdoutBytes, _ := io.ReadAll(stdoutR)
	stderrBytes, _ := io.ReadAll(stderrR)

	_ = stdoutR.Close()
	_ = stderrR.Close()

	return code, string(stdoutBytes), string(stderrBytes)
}

func writeTestConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
service:
  name: forgebot
  log_level: ERROR
github:
  token: test-token
`

func TestDispatchOneShot(t *testing.T) {
	configPath := writeTestConfig(t, minimalConfig)
	payloadPath := filepath.Join(t.TempDir(), "payload.json")
	payload := `{"action":"assigned","issue":{"number":3},"repository":{"full_name":"org/repo"},"sender":{"login":"alice"}}`
	if err := os.WriteFile(payloadPath, []byte(payload), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runDispatch([]string{
			"--config", configPath,
			"--event", "issues",
			"--payload", payloadPath,
			"--delivery-id", "guid-42",
		})
	})
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	for _, want := range []string{
		"event_name=issues",
		"event_guid=guid-42",
		"repository=org/repo",
		"plugins_enabled=",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
}

func TestDispatchFailsWithoutToken(t *testing.T) {
	configPath := writeTestConfig(t, "service:\n  name: forgebot\n")
	payloadPath := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(payloadPath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	t.Setenv("GITHUB_TOKEN", "")

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runDispatch([]string{
			"--config", configPath,
			"--event", "issues",
			"--payload", payloadPath,
		})
	})
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "token") {
		t.Errorf("stderr should name the missing token: %s", stderr)
	}
}

func TestDispatchRejectsUnknownPluginSelection(t *testing.T) {
	configPath := writeTestConfig(t, minimalConfig)
	payloadPath := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(payloadPath, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runDispatch([]string{
			"--config", configPath,
			"--event", "issues",
			"--payload", payloadPath,
			"--plugins", "welcome,nosuch",
		})
	})
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "nosuch") {
		t.Errorf("stderr should name the unknown plugin: %s", stderr)
	}
}

func TestConfigCheckAndLockCycle(t *testing.T) {
	configPath := writeTestConfig(t, minimalConfig)

	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("check before lock: exit = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "PASSED") {
		t.Errorf("stdout = %q, want PASSED", stdout)
	}

	code, _, stderr = captureOutputWithExitCode(t, func() int {
		return runConfigLock([]string{"--config", configPath})
	})
	if code != 0 {
		t.Fatalf("lock: exit = %d, stderr: %s", code, stderr)
	}

	if err := os.WriteFile(configPath, []byte(minimalConfig+"state:\n  path: x.db\n"), 0o644); err != nil {
		t.Fatalf("tamper config: %v", err)
	}
	code, _, _ = captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 1 {
		t.Fatalf("check after tamper: exit = %d, want 1", code)
	}
}

func TestConfigCheckFlagsUnknownPlugins(t *testing.T) {
	configPath := writeTestConfig(t, minimalConfig+`
plugins:
  welcome:
    enabled: true
  mystery:
    enabled: true
`)

	code, _, stderr := captureOutputWithExitCode(t, func() int {
		return runConfigCheck([]string{"--config", configPath})
	})
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(stderr, "mystery") {
		t.Errorf("stderr should name the unknown plugin: %s", stderr)
	}
}

func TestPluginListShowsCatalog(t *testing.T) {
	code, stdout, stderr := captureOutputWithExitCode(t, func() int {
		return runPluginList(nil)
	})
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, stderr)
	}
	for _, name := range []string{"welcome", "label", "lgtm", "assign"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("stdout missing plugin %q:\n%s", name, stdout)
		}
	}
}

func TestUnknownPlugins(t *testing.T) {
	cfg := &config.Config{
		Plugins: map[string]config.PluginConf{
			"welcome": {},
			"zeta":    {},
			"alpha":   {},
		},
	}
	got := unknownPlugins(cfg)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("unknownPlugins = %v, want [alpha zeta]", got)
	}
}
