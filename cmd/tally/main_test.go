package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI runs the CLI with an isolated configuration file and returns the
// exit status with everything written to stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	cfg := filepath.Join(t.TempDir(), "tally.toml")
	if err := os.WriteFile(cfg, []byte("[log]\nverbosity = -4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-config", cfg}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestTestBuiltinCorpus(t *testing.T) {
	code, out, errOut := runCLI(t, "", "test")
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s\n%s", code, errOut, out)
	}
	if !strings.Contains(out, "Results: 6 passed, 6 total") {
		t.Errorf("missing summary:\n%s", out)
	}
}

func TestTestFailingCorpus(t *testing.T) {
	path := writeFile(t, "bad.txt", "# Wrong\n1 * 2 * 3 * 4  # -> 30\n")
	code, out, _ := runCLI(t, "", "test", path)
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(out, "1 failed") {
		t.Errorf("missing failure summary:\n%s", out)
	}
}

func TestTestMissingFile(t *testing.T) {
	code, _, errOut := runCLI(t, "", "test", filepath.Join(t.TempDir(), "nope.txt"))
	if code != 1 || !strings.Contains(errOut, "Error:") {
		t.Errorf("exit = %d, stderr = %q", code, errOut)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		stdin    string
		args     []string
		wantCode int
		wantOut  string
		wantErr  string
	}{
		{"expression", "", []string{"run", "-e", "2 ^ 3 ^ 2"}, 0, "512\n", ""},
		{"prompts on stdin", "5\n", []string{"run", "-e", "x + 1"}, 0, "value of x: 6\n", ""},
		{"fixed input", "", []string{"run", "-input", "9", "-e", "x; y"}, 0, "9\n9\n", ""},
		{"parse error", "", []string{"run", "-e", "1 +"}, 1, "", "-e: parse error at 1:4"},
		{"runtime error", "", []string{"run", "-input", "-1", "-e", "2 ^ n"}, 1, "", "negative exponent"},
		{"no input", "", []string{"run"}, 1, "", "no input"},
		{"bad flag", "", []string{"run", "-nope"}, 2, "", ""},
		{"preset variable", "", []string{"run", "-var", "x=4", "-var", "y=-1", "-e", "x * x; y"}, 0, "16\n-1\n", ""},
		{"preset is not asked", "", []string{"run", "-var", "x=3", "-input", "0", "-e", "x; z"}, 0, "3\n0\n", ""},
		{"bad preset name", "", []string{"run", "-var", "X=1", "-e", "1"}, 2, "", "-var"},
		{"bad preset value", "", []string{"run", "-var", "x=lots", "-e", "1"}, 2, "", "invalid value"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, out, errOut := runCLI(t, tc.stdin, tc.args...)
			if code != tc.wantCode {
				t.Errorf("exit = %d, want %d (stderr %q)", code, tc.wantCode, errOut)
			}
			if out != tc.wantOut {
				t.Errorf("stdout = %q, want %q", out, tc.wantOut)
			}
			if tc.wantErr != "" && !strings.Contains(errOut, tc.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", errOut, tc.wantErr)
			}
		})
	}
}

func TestRunFilesShareVariables(t *testing.T) {
	first := writeFile(t, "a.tl", "x = 4;\n")
	second := writeFile(t, "b.tl", "x * x\n")
	code, out, errOut := runCLI(t, "", "run", first, second)
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, errOut)
	}
	if out != "16\n" {
		t.Errorf("stdout = %q, want 16", out)
	}
}

func TestDisasm(t *testing.T) {
	code, out, errOut := runCLI(t, "", "disasm", "-e", "x = 1 + 2")
	if code != 0 {
		t.Fatalf("exit = %d, stderr: %s", code, errOut)
	}
	for _, want := range []string{
		"; === -e ===\n",
		"0000  CONST(1)\n0001  CONST(2)\n0002  ADD\n0003  STORE(x)\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestDisasmRejectsMixedInput(t *testing.T) {
	code, _, errOut := runCLI(t, "", "disasm", "-e", "1", "file.tl")
	if code != 1 || !strings.Contains(errOut, "mutually exclusive") {
		t.Errorf("exit = %d, stderr = %q", code, errOut)
	}
}

func TestReplIsDefault(t *testing.T) {
	code, out, _ := runCLI(t, "", "")
	if code != 2 {
		t.Errorf("empty command name: exit = %d, want 2", code)
	}

	code, out, _ = runCLI(t, "1 + 1\nexit\n")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if out != ">>> 2\n>>> " {
		t.Errorf("transcript = %q", out)
	}
}

func TestConfig(t *testing.T) {
	code, out, _ := runCLI(t, "", "config")
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	for _, want := range []string{"[repl]", `prompt = ">>> "`, "verbosity = -4"} {
		if !strings.Contains(out, want) {
			t.Errorf("config missing %q:\n%s", want, out)
		}
	}
}

func TestBadConfig(t *testing.T) {
	path := writeFile(t, "tally.toml", "[repl]\ncolour = true\n")
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", path, "config"}, strings.NewReader(""), &stdout, &stderr)
	if code != 1 || !strings.Contains(stderr.String(), "unknown keys") {
		t.Errorf("exit = %d, stderr = %q", code, stderr.String())
	}
}

func TestServerTTLConfig(t *testing.T) {
	path := writeFile(t, "tally.toml", "[log]\nverbosity = -4\n[server]\nsession_ttl = \"10m\"\nprogram_ttl = \"45s\"\n")
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", path, "config"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, stderr.String())
	}
	for _, want := range []string{"session_ttl", "program_ttl"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("config missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestServeArguments(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantErr  string
	}{
		{"zero session ttl", []string{"serve", "-session-ttl", "0s"}, 2, "TTLs must be positive"},
		{"bad duration", []string{"serve", "-program-ttl", "soon"}, 2, "program-ttl"},
		{"bad address", []string{"serve", "-addr", "127.0.0.1:99999"}, 1, "Server error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, "", tc.args...)
			if code != tc.wantCode {
				t.Errorf("exit = %d, want %d (stderr %q)", code, tc.wantCode, errOut)
			}
			if !strings.Contains(errOut, tc.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", errOut, tc.wantErr)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "", "frobnicate")
	if code != 2 {
		t.Errorf("exit = %d, want 2", code)
	}
	if !strings.Contains(errOut, `unknown command "frobnicate"`) || !strings.Contains(errOut, "Usage: tally") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestVerbosityFlag(t *testing.T) {
	var v verbosity
	for _, s := range []string{"true", "true"} {
		if err := v.Set(s); err != nil {
			t.Fatal(err)
		}
	}
	if v != 2 {
		t.Errorf("after two -v, verbosity = %d", v)
	}
	if err := v.Set("-1"); err != nil || v != -1 {
		t.Errorf("Set(-1) = %v, verbosity %d", err, v)
	}
	if err := v.Set("false"); err != nil || v != 0 {
		t.Errorf("Set(false) = %v, verbosity %d", err, v)
	}
	if err := v.Set("loud"); err == nil {
		t.Error("Set(loud) should fail")
	}
}

func TestVerbosityFalseIsAccepted(t *testing.T) {
	code, out, errOut := runCLI(t, "", "-v=false", "run", "-e", "1")
	if code != 0 || out != "1\n" {
		t.Errorf("exit = %d, stdout = %q, stderr = %q", code, out, errOut)
	}
}
