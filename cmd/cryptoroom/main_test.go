package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/littlerose/cryptoroom"
	"github.com/littlerose/cryptoroom/internal/keystore"
)

const testPassword = "correct horse"

type workspace struct {
	dir      string
	settings string
	key      string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:      dir,
		settings: filepath.Join(dir, "cryptoroom.yaml"),
		key:      filepath.Join(dir, "alice.grk"),
	}
	yaml := "owner:\n  org_name: Little Rose\n  surname: Alice\n" +
		"wrapper: mlkem768\n" +
		"key_file: " + ws.key + "\n" +
		"metrics_file: " + filepath.Join(dir, "cryptoroom.prom") + "\n" +
		"log:\n  level: error\n"
	if err := os.WriteFile(ws.settings, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return ws
}

// run executes a command with the workspace settings and the test password
// on stdin.
func (ws *workspace) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cfg := &Config{
		Stdin:  strings.NewReader(testPassword + "\n"),
		Stdout: &stdout,
		Stderr: &stderr,
	}
	argv := append([]string{"cryptoroom", args[0], "-config", ws.settings, "-env", filepath.Join(ws.dir, ".env")}, args[1:]...)
	err := run(argv, cfg)
	return stdout.String(), err
}

func (ws *workspace) keygen(t *testing.T, args ...string) {
	t.Helper()
	if _, err := ws.run(t, append([]string{"keygen"}, args...)...); err != nil {
		t.Fatalf("keygen error = %v", err)
	}
}

func (ws *workspace) plaintext(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := bytes.Repeat([]byte("little red rose "), size/16+1)[:size]
	path := filepath.Join(ws.dir, "report.txt")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Stdin != os.Stdin {
		t.Error("DefaultConfig().Stdin should be os.Stdin")
	}
	if cfg.Stdout != os.Stdout {
		t.Error("DefaultConfig().Stdout should be os.Stdout")
	}
	if cfg.Stderr != os.Stderr {
		t.Error("DefaultConfig().Stderr should be os.Stderr")
	}
}

func TestRun_NoArgs(t *testing.T) {
	err := run([]string{"cryptoroom"}, &Config{Stdout: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("run() error = %v, want usage", err)
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run([]string{"cryptoroom", "shred"}, &Config{Stdout: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("run() error = %v, want unknown command", err)
	}
}

func TestRun_BadFlag(t *testing.T) {
	var stderr bytes.Buffer
	err := run([]string{"cryptoroom", "selftest", "-nope"}, &Config{Stderr: &stderr})
	if err == nil {
		t.Fatal("run() should reject unknown flags")
	}
	if !strings.Contains(stderr.String(), "-nope") {
		t.Errorf("stderr = %q, want the flag error", stderr.String())
	}
}

func TestRun_BadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("wrapper: ecies\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	err := run([]string{"cryptoroom", "selftest", "-config", path}, &Config{Stderr: &bytes.Buffer{}})
	if err == nil || !strings.Contains(err.Error(), "load settings") {
		t.Errorf("run() error = %v, want a settings error", err)
	}
}

func TestRun_SelfTest(t *testing.T) {
	ws := newWorkspace(t)
	out, err := ws.run(t, "selftest")
	if err != nil {
		t.Fatalf("selftest error = %v", err)
	}
	if !strings.Contains(out, "checks passed") {
		t.Errorf("stdout = %q", out)
	}

	prom, err := os.ReadFile(filepath.Join(ws.dir, "cryptoroom.prom"))
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(prom), "cryptoroom_self_tests_total") {
		t.Error("metrics file lacks self test counters")
	}
}

func TestRun_EncryptDecryptVerify(t *testing.T) {
	ws := newWorkspace(t)
	ws.keygen(t)

	c, err := keystore.Load(ws.key)
	if err != nil {
		t.Fatalf("keystore.Load() error = %v", err)
	}
	if c.Surname != "Alice" {
		t.Errorf("Surname = %q, want Alice", c.Surname)
	}

	src, want := ws.plaintext(t, 5000)
	out, err := ws.run(t, "encrypt", src)
	if err != nil {
		t.Fatalf("encrypt error = %v", err)
	}
	enc := src + EncryptedExt
	if strings.TrimSpace(out) != enc {
		t.Errorf("encrypt printed %q, want %q", out, enc)
	}

	if _, err := ws.run(t, "verify", enc); err != nil {
		t.Fatalf("verify error = %v", err)
	}

	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}
	if _, err := ws.run(t, "decrypt", "-parallel", enc); err != nil {
		t.Fatalf("decrypt error = %v", err)
	}
	got, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("decrypted file differs from the original")
	}
}

func TestRun_EncryptForRecipient(t *testing.T) {
	ws := newWorkspace(t)
	ws.keygen(t)
	bobKey := filepath.Join(ws.dir, "bob.grk")
	ws.keygen(t, "-out", bobKey)

	src, want := ws.plaintext(t, 100)
	enc := filepath.Join(ws.dir, "for-bob.enc")
	if _, err := ws.run(t, "encrypt", "-to", bobKey, "-out", enc, src); err != nil {
		t.Fatalf("encrypt error = %v", err)
	}

	// Alice cannot open a file addressed to Bob.
	_, err := ws.run(t, "decrypt", enc)
	if !errors.Is(err, cryptoroom.ErrSessionKeyUnwrap) {
		t.Fatalf("decrypt as alice error = %v, want ErrSessionKeyUnwrap", err)
	}

	out := filepath.Join(ws.dir, "from-alice.txt")
	if _, err := ws.run(t, "decrypt", "-key", bobKey, "-from", ws.key, "-out", out, enc); err != nil {
		t.Fatalf("decrypt as bob error = %v", err)
	}
	got, _ := os.ReadFile(out)
	if !bytes.Equal(got, want) {
		t.Error("decrypted file differs from the original")
	}
}

func TestRun_WrongPassword(t *testing.T) {
	ws := newWorkspace(t)
	ws.keygen(t)
	src, _ := ws.plaintext(t, 64)

	t.Setenv(envPassword, "wrong horse battery")
	_, err := ws.run(t, "encrypt", src)
	if !errors.Is(err, cryptoroom.ErrWrongPassword) {
		t.Errorf("encrypt error = %v, want ErrWrongPassword", err)
	}
}

func TestRun_MissingFileArgument(t *testing.T) {
	ws := newWorkspace(t)
	_, err := ws.run(t, "verify")
	if err == nil || !strings.Contains(err.Error(), "file argument") {
		t.Errorf("verify error = %v, want a file argument error", err)
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		want    string
		wantErr bool
	}{
		{"line", "secret pass\nignored\n", "secret pass", false},
		{"crlf", "secret pass\r\n", "secret pass", false},
		{"no newline", "secret pass", "secret pass", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &env{cfg: &Config{Stdin: strings.NewReader(tt.stdin)}}
			got, err := e.password()
			if (err != nil) != tt.wantErr {
				t.Fatalf("password() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("password() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("environment", func(t *testing.T) {
		t.Setenv(envPassword, "from env")
		e := &env{cfg: &Config{Stdin: strings.NewReader("from stdin\n")}}
		if got, _ := e.password(); got != "from env" {
			t.Errorf("password() = %q, want the environment value", got)
		}
	})
}

func TestFatal(t *testing.T) {
	originalExitFunc := exitFunc
	defer func() { exitFunc = originalExitFunc }()

	var exitCode int
	exitFunc = func(code int) {
		exitCode = code
	}

	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w

	fatal("error %d: %s", 42, "something went wrong")

	w.Close()
	os.Stderr = oldStderr
	var buf bytes.Buffer
	buf.ReadFrom(r)

	if exitCode != 1 {
		t.Errorf("exitCode = %d, want 1", exitCode)
	}
	if got, want := buf.String(), "error 42: something went wrong\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
