//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/littlerose/cryptoroom"
	"github.com/littlerose/cryptoroom/internal/keystore"
	"github.com/littlerose/cryptoroom/internal/keywrap"
	"github.com/littlerose/cryptoroom/internal/metrics"
)

const password = "integration password"

var (
	scratchDir string
	fileSize   = int64(64 << 20)
)

func TestMain(m *testing.M) {
	// Load .env file if it exists (won't error if missing)
	if err := godotenv.Load("../.env"); err != nil {
		os.Stderr.WriteString("Note: .env file not found at project root\n")
	}

	scratchDir = os.Getenv("CRYPTOROOM_SCRATCH_DIR")
	if scratchDir == "" {
		os.Stderr.WriteString("Skipping integration tests: CRYPTOROOM_SCRATCH_DIR not set\n")
		os.Exit(0)
	}
	if v := os.Getenv("CRYPTOROOM_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			os.Stderr.WriteString("CRYPTOROOM_FILE_SIZE: " + err.Error() + "\n")
			os.Exit(2)
		}
		fileSize = n
	}

	os.Stderr.WriteString("Running integration tests...\n")
	os.Stderr.WriteString("Scratch dir: " + scratchDir + "\n")

	os.Exit(m.Run())
}

func workDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp(scratchDir, "cryptoroom-")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func randomFile(t *testing.T, dir string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, "plain.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := io.CopyN(f, rand.Reader, size); err != nil {
		t.Fatal(err)
	}
	return path
}

// savedKey creates a container, writes it to disk and loads it back.
func savedKey(t *testing.T, dir string, w keywrap.Wrapper) (*keystore.Container, *keystore.Keys) {
	t.Helper()
	c, err := keystore.Create(keystore.Owner{OrgName: "Little Rose", Surname: "Integration"}, password, w)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	path := filepath.Join(dir, "key"+keystore.Extension)
	if err := c.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := keystore.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	keys, err := loaded.Unlock(password)
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	return loaded, keys
}

func sameFiles(t *testing.T, a, b string) {
	t.Helper()
	x, err := os.ReadFile(a)
	if err != nil {
		t.Fatal(err)
	}
	y, err := os.ReadFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(x, y) {
		t.Fatalf("%s and %s differ", filepath.Base(a), filepath.Base(b))
	}
}

func TestIntegration_LargeFileRoundTrip(t *testing.T) {
	wrappers := []keywrap.Wrapper{keywrap.NewRSA(keywrap.DefaultRSABits), keywrap.NewMLKEM()}

	for _, w := range wrappers {
		t.Run(w.Name(), func(t *testing.T) {
			dir := workDir(t)
			c, keys := savedKey(t, dir, w)
			to, from, err := cryptoroom.PublicKeys(c)
			if err != nil {
				t.Fatal(err)
			}

			reg := metrics.NewRegistry()
			worker := cryptoroom.NewWorker(cryptoroom.WithMetrics(reg))
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()

			src := randomFile(t, dir, fileSize)
			enc := src + ".enc"
			start := time.Now()
			if err := worker.EncryptFile(ctx, src, enc, to, keys.Signing); err != nil {
				t.Fatalf("EncryptFile() error = %v", err)
			}
			t.Logf("encrypted %d bytes in %v", fileSize, time.Since(start))

			seq := filepath.Join(dir, "sequential.bin")
			start = time.Now()
			if err := worker.DecryptFile(ctx, enc, seq, keys, from); err != nil {
				t.Fatalf("DecryptFile() error = %v", err)
			}
			t.Logf("decrypted sequentially in %v", time.Since(start))

			par := filepath.Join(dir, "parallel.bin")
			start = time.Now()
			if err := worker.DecryptFileParallel(ctx, enc, par, keys, from); err != nil {
				t.Fatalf("DecryptFileParallel() error = %v", err)
			}
			t.Logf("decrypted in parallel in %v", time.Since(start))

			sameFiles(t, src, seq)
			sameFiles(t, src, par)

			if err := reg.WriteTextfile(filepath.Join(dir, "metrics.prom")); err != nil {
				t.Errorf("WriteTextfile() error = %v", err)
			}
		})
	}
}

func TestIntegration_SelfTest(t *testing.T) {
	if err := cryptoroom.SelfTest(); err != nil {
		t.Fatalf("SelfTest() error = %v", err)
	}
}
