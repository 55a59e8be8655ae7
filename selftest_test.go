package cryptoroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/littlerose/cryptoroom/internal/metrics"
)

func TestChecks(t *testing.T) {
	for _, c := range Checks() {
		t.Run(c.Name, func(t *testing.T) {
			if err := c.Run(); err != nil {
				t.Errorf("check failed: %v", err)
			}
		})
	}
}

func TestWorker_SelfTest(t *testing.T) {
	reg := metrics.NewRegistry()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := NewWorker(WithMetrics(reg), WithLogger(logger))
	if err := w.SelfTest(context.Background()); err != nil {
		t.Fatalf("SelfTest() error = %v", err)
	}

	for _, c := range Checks() {
		if got := counterValue(t, reg.SelfTestsTotal.WithLabelValues(c.Name, metrics.StatusSuccess)); got != 1 {
			t.Errorf("self test %s recorded %v successes, want 1", c.Name, got)
		}
		if !bytes.Contains(buf.Bytes(), []byte("check="+c.Name)) {
			t.Errorf("check %s not logged", c.Name)
		}
	}
}

func TestWorker_SelfTest_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewWorker().SelfTest(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("SelfTest() error = %v, want context.Canceled", err)
	}
}

func TestMismatch(t *testing.T) {
	err := mismatch("cfb", []byte{0xab}, []byte{0xcd})
	if !errors.Is(err, ErrSelfTestFailed) {
		t.Error("mismatch does not match ErrSelfTestFailed")
	}
	if got, want := err.Error(), "self test cfb: got ab, want cd"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func ExampleSelfTest() {
	if err := SelfTest(); err != nil {
		fmt.Println("self test failed:", err)
		return
	}
	fmt.Println("all checks passed")
	// Output: all checks passed
}
