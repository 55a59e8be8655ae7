package cryptoroom

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/littlerose/cryptoroom/internal/ec"
	"github.com/littlerose/cryptoroom/internal/envelope"
	"github.com/littlerose/cryptoroom/internal/keystore"
	"github.com/littlerose/cryptoroom/internal/keywrap"
	"github.com/littlerose/cryptoroom/internal/kuznyechik"
	"github.com/littlerose/cryptoroom/internal/mode"
)

// Operation names used in errors, logs and metrics.
const (
	OpEncrypt         = "encrypt"
	OpDecrypt         = "decrypt"
	OpDecryptParallel = "decrypt_parallel"
	OpVerify          = "verify"
	OpSign            = "sign"
)

// Recipient is the public key a file is encrypted for.
type Recipient struct {
	Wrapper   keywrap.Wrapper
	PublicKey []byte
}

// Sender is the public key that verifies file signatures.
type Sender struct {
	Curve *ec.Curve
	Q     *ec.Point
	// ID, when set, must match the signer reference stored in the file.
	ID uuid.UUID
}

// PublicKeys returns the public halves of a key container. They do not
// require the container password.
func PublicKeys(c *keystore.Container) (Recipient, Sender, error) {
	w, err := keywrap.ByOID(c.AlgorithmOID)
	if err != nil {
		return Recipient{}, Sender{}, err
	}
	pub, err := c.WrappingPublicKey()
	if err != nil {
		return Recipient{}, Sender{}, err
	}
	q, err := c.SigningPublicKey()
	if err != nil {
		return Recipient{}, Sender{}, err
	}
	return Recipient{Wrapper: w, PublicKey: pub}, Sender{Curve: q.Curve, Q: q, ID: c.ID()}, nil
}

// Worker encrypts, signs, verifies and decrypts files. A Worker holds no
// per-file state and may be used from several goroutines.
type Worker struct {
	cfg workerConfig
	cbc *mode.CBC
}

// NewWorker returns a worker configured by opts.
func NewWorker(opts ...Option) *Worker {
	cfg := workerConfig{
		logger:    slog.New(slog.DiscardHandler),
		algorithm: kuznyechik.Reference{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Worker{cfg: cfg, cbc: mode.NewCBC(cfg.algorithm)}
}

// EncryptFile encrypts src for to, writes the envelope to dst and signs it
// with signer.
//
// Envelopes larger than the signing limit are kept unsigned and
// ErrFileTooLargeToSign is returned. On any other failure dst is removed.
func (w *Worker) EncryptFile(ctx context.Context, src, dst string, to Recipient, signer envelope.SigningKey) (err error) {
	start := time.Now()
	defer func() { w.record(OpEncrypt, start, err) }()

	in, err := os.Open(src)
	if err != nil {
		return wrapError(OpEncrypt, src, err)
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return wrapError(OpEncrypt, src, err)
	}
	size := uint64(st.Size())
	if size < kuznyechik.BlockSize {
		return wrapError(OpEncrypt, src, fmt.Errorf("%w: %d bytes", ErrDataTooShort, size))
	}

	key := make([]byte, kuznyechik.KeySize)
	defer clear(key)
	if _, err := io.ReadFull(w.random(), key); err != nil {
		return wrapError(OpEncrypt, src, fmt.Errorf("generate session key: %w", err))
	}

	w.cfg.status("wrapping session key")
	wrapped, err := to.Wrapper.Wrap(to.PublicKey, key)
	if err != nil {
		return wrapError(OpEncrypt, src, fmt.Errorf("wrap session key: %w", err))
	}

	var trailer keywrap.Blocks
	trailer.Append(keywrap.TypePublicKeyHash, envelope.PublicKeyHash(to.PublicKey))
	trailer.Append(keywrap.TypeSessionKey, wrapped)
	rawTrailer, err := trailer.MarshalBinary()
	if err != nil {
		return wrapError(OpEncrypt, src, err)
	}
	header, err := envelope.NewHeader(size).MarshalBinary()
	if err != nil {
		return wrapError(OpEncrypt, src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return wrapError(OpEncrypt, dst, err)
	}

	w.cfg.status("encrypting")
	_, err = w.cbc.Encrypt(ctx, in, out, mode.EncryptRequest{
		Key:      key,
		Length:   size,
		Header:   header,
		Trailer:  rawTrailer,
		Rand:     w.cfg.rand,
		Progress: w.cfg.modeProgress(OpEncrypt),
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return wrapError(OpEncrypt, src, err)
	}

	w.cfg.status("signing")
	if err := envelope.Sign(ctx, dst, signer, w.cfg.rand); err != nil {
		if errors.Is(err, ErrFileTooLargeToSign) {
			w.cfg.logger.Warn("encrypted file left unsigned", "path", dst, "error", err)
			if w.cfg.metrics != nil {
				w.cfg.metrics.SignaturesSkipped.Inc()
			}
			return wrapError(OpSign, dst, err)
		}
		os.Remove(dst)
		return wrapError(OpSign, dst, err)
	}

	w.cfg.logger.Info("file encrypted",
		"src", src,
		"dst", dst,
		"bytes", size,
		"wrapper", to.Wrapper.Name(),
		"duration", time.Since(start),
	)
	return nil
}

// DecryptFile verifies the signature of src against from and then decrypts
// it to dst with keys. The first call on an envelope moves its signature
// blocks into the companion ".sign" file. On failure dst is removed.
func (w *Worker) DecryptFile(ctx context.Context, src, dst string, keys *keystore.Keys, from Sender) (err error) {
	start := time.Now()
	defer func() { w.record(OpDecrypt, start, err) }()

	fi, err := w.open(src, keys, from)
	if err != nil {
		return wrapError(OpDecrypt, src, err)
	}
	defer clear(fi.SessionKey)

	w.cfg.status("verifying signature")
	if err := envelope.Verify(ctx, src, fi, from.Curve, from.Q); err != nil {
		return wrapError(OpVerify, src, err)
	}

	w.cfg.status("decrypting")
	if err := w.decryptBody(ctx, src, dst, fi, OpDecrypt); err != nil {
		return wrapError(OpDecrypt, src, err)
	}

	w.cfg.logger.Info("file decrypted", "src", src, "dst", dst, "duration", time.Since(start))
	return nil
}

// DecryptFileParallel is DecryptFile with signature verification and
// decryption running concurrently on separate file handles. A failing task
// does not cancel the other; the call waits for both and returns their
// errors joined. On failure dst is removed.
func (w *Worker) DecryptFileParallel(ctx context.Context, src, dst string, keys *keystore.Keys, from Sender) (err error) {
	start := time.Now()
	defer func() { w.record(OpDecryptParallel, start, err) }()

	fi, err := w.open(src, keys, from)
	if err != nil {
		return wrapError(OpDecrypt, src, err)
	}
	defer clear(fi.SessionKey)

	var verifyErr, decryptErr error
	var g errgroup.Group
	g.Go(func() error {
		w.cfg.status("verifying signature")
		verifyErr = wrapError(OpVerify, src, envelope.Verify(ctx, src, fi, from.Curve, from.Q))
		return nil
	})
	g.Go(func() error {
		w.cfg.status("decrypting")
		decryptErr = wrapError(OpDecrypt, src, w.decryptBody(ctx, src, dst, fi, OpDecryptParallel))
		return nil
	})
	g.Wait()

	if err := errors.Join(verifyErr, decryptErr); err != nil {
		os.Remove(dst)
		return err
	}

	w.cfg.logger.Info("file decrypted", "src", src, "dst", dst, "parallel", true, "duration", time.Since(start))
	return nil
}

// VerifyFile checks the signature of src against from without decrypting.
func (w *Worker) VerifyFile(ctx context.Context, src string, from Sender) (err error) {
	start := time.Now()
	defer func() { w.record(OpVerify, start, err) }()

	fi, err := envelope.ReadInfo(src)
	if err != nil {
		return wrapError(OpVerify, src, err)
	}
	if err := checkSigner(fi, from); err != nil {
		return wrapError(OpVerify, src, err)
	}
	return wrapError(OpVerify, src, envelope.Verify(ctx, src, fi, from.Curve, from.Q))
}

// open reads the envelope trailer and unwraps the session key.
func (w *Worker) open(src string, keys *keystore.Keys, from Sender) (*envelope.FileInfo, error) {
	w.cfg.status("reading file info")
	fi, err := envelope.ReadInfo(src)
	if err != nil {
		return nil, err
	}
	if err := checkSigner(fi, from); err != nil {
		return nil, err
	}

	// Envelopes from older writers carry a zeroed hash.
	if pkh, err := fi.Blocks.PublicKeyHash(); err == nil && !isZero(pkh) &&
		!bytes.Equal(pkh, envelope.PublicKeyHash(keys.PublicKey)) {
		return nil, fmt.Errorf("%w: file is addressed to another key", ErrSessionKeyUnwrap)
	}

	w.cfg.status("unwrapping session key")
	key, err := keys.Wrapper.Unwrap(keys.PrivateKey, fi.WrappedKey)
	if err != nil {
		return nil, err
	}
	fi.SessionKey = key
	return fi, nil
}

func (w *Worker) decryptBody(ctx context.Context, src, dst string, fi *envelope.FileInfo, operation string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	err = w.cbc.Decrypt(ctx, in, out, mode.DecryptRequest{
		Key:          fi.SessionKey,
		IV:           fi.IV,
		Offset:       fi.DataStart(),
		SealedLength: fi.Header.SealedLength,
		Progress:     w.cfg.modeProgress(operation),
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
	}
	return err
}

func checkSigner(fi *envelope.FileInfo, from Sender) error {
	if from.ID == uuid.Nil {
		return nil
	}
	id, err := envelope.ParseSignerRef(fi.SignerRef)
	if err != nil {
		return err
	}
	if id != from.ID {
		return fmt.Errorf("%w: signed by %s, want %s", ErrSignerMismatch, id, from.ID)
	}
	return nil
}

func (w *Worker) record(operation string, start time.Time, err error) {
	if err != nil {
		w.cfg.logger.Error("operation failed", "operation", operation, "error", err)
	}
	if w.cfg.metrics != nil {
		w.cfg.metrics.RecordOperation(operation, err, time.Since(start))
	}
}

func (w *Worker) random() io.Reader {
	if w.cfg.rand != nil {
		return w.cfg.rand
	}
	return rand.Reader
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
