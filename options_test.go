package cryptoroom

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/littlerose/cryptoroom/internal/kuznyechik"
	"github.com/littlerose/cryptoroom/internal/metrics"
)

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker()
	if w.cfg.logger == nil {
		t.Error("logger is nil")
	}
	if w.cfg.algorithm != (kuznyechik.Reference{}) {
		t.Errorf("algorithm = %v, want reference", w.cfg.algorithm)
	}
	if w.cfg.metrics != nil {
		t.Error("metrics should be disabled by default")
	}
	if w.cbc.Algorithm() != (kuznyechik.Reference{}) {
		t.Error("chaining mode does not use the configured algorithm")
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w := NewWorker(WithLogger(logger))
	w.cfg.status("encrypting")
	if !bytes.Contains(buf.Bytes(), []byte("msg=encrypting")) {
		t.Errorf("log = %q, want the status line", buf.String())
	}
}

func TestWithRand(t *testing.T) {
	src := bytes.NewReader(make([]byte, 64))
	cfg := &workerConfig{}
	WithRand(src)(cfg)
	if cfg.rand != src {
		t.Error("rand not set")
	}
	if NewWorker(WithRand(src)).random() != src {
		t.Error("random() ignores the configured reader")
	}
}

func TestWithAlgorithm(t *testing.T) {
	w := NewWorker(WithAlgorithm(kuznyechik.Alternate{}))
	if w.cbc.Algorithm().Name() != "alternate" {
		t.Errorf("algorithm = %s, want alternate", w.cbc.Algorithm().Name())
	}
}

func TestModeProgress(t *testing.T) {
	reg := metrics.NewRegistry()
	var size, count uint64
	var done []uint64
	var status []string

	w := NewWorker(WithMetrics(reg), WithProgress(Progress{
		SetDataSize:   func(n uint64) { size = n },
		SetBlockCount: func(n uint64) { count = n },
		BlockDone:     func(i uint64) { done = append(done, i) },
		Status:        func(s string) { status = append(status, s) },
	}))

	p := w.cfg.modeProgress(OpEncrypt)
	p.SetDataSize(40)
	p.SetBlockCount(2)
	p.BlockDone(0)
	p.BlockDone(1)
	w.cfg.status("signing")

	if size != 40 || count != 2 || len(done) != 2 {
		t.Errorf("callbacks got size=%d count=%d done=%v", size, count, done)
	}
	if len(status) != 1 || status[0] != "signing" {
		t.Errorf("status = %v, want [signing]", status)
	}
	if got := counterValue(t, reg.BlocksTotal.WithLabelValues(OpEncrypt)); got != 2 {
		t.Errorf("blocks metric = %v, want 2", got)
	}
	if got := counterValue(t, reg.BytesTotal.WithLabelValues(OpEncrypt)); got != 40 {
		t.Errorf("bytes metric = %v, want 40", got)
	}
}

func TestModeProgress_NilCallbacks(t *testing.T) {
	p := NewWorker(WithMetrics(metrics.NewRegistry())).cfg.modeProgress(OpDecrypt)
	p.SetDataSize(16)
	p.BlockDone(0)
	if p.SetBlockCount != nil {
		t.Error("SetBlockCount should stay nil")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}
