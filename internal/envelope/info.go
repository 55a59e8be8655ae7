package envelope

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/littlerose/cryptoroom/internal/keywrap"
)

// SignatureSuffix names the companion file holding detached signature blocks.
const SignatureSuffix = ".sign"

// FileInfo is everything read from an envelope before decryption.
type FileInfo struct {
	Header Header

	// IV seeds the CBC register.
	IV []byte
	// Blocks are the metadata and signature blocks in file order.
	Blocks keywrap.Blocks
	// WrappedKey is the session key as wrapped for the recipient.
	WrappedKey []byte
	// SessionKey is filled in by the caller once WrappedKey is unwrapped.
	SessionKey []byte

	// R and S are the raw signature vectors.
	R, S []byte
	// SignerRef identifies the key that verifies the signature.
	SignerRef []byte

	// SignStart is the offset where the signed region ends.
	SignStart int64
	// Detached reports whether signature blocks came from the companion file.
	Detached bool
}

// DataStart returns the offset of the first ciphertext block.
func (fi *FileInfo) DataStart() int64 { return DataStart }

// ReadInfo parses the header and trailer of the envelope at path.
//
// When <path>.sign exists its blocks are read as well. Otherwise the
// signature blocks are moved from the end of the envelope into a new
// <path>.sign and the envelope is truncated, so later reads take the
// companion path.
func ReadInfo(path string) (*FileInfo, error) {
	signPath := path + SignatureSuffix
	_, err := os.Stat(signPath)
	detached := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat signature file: %w", err)
	}

	fi, err := readInfo(path, signPath, detached)
	if err != nil {
		return nil, err
	}

	if !detached {
		if err := detach(path, signPath, fi.SignStart); err != nil {
			return nil, err
		}
	}
	return fi, nil
}

func readInfo(path, signPath string, detached bool) (*FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %s", ErrTruncated, path)
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	hdr, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.TrailerStart() > st.Size() {
		return nil, fmt.Errorf("%w: sealed length %d exceeds file size %d", ErrTruncated, hdr.SealedLength, st.Size())
	}

	fi := &FileInfo{Header: hdr, IV: make([]byte, IVSize), SignStart: -1, Detached: detached}
	if _, err := f.ReadAt(fi.IV, hdr.IVStart()); err != nil {
		return nil, fmt.Errorf("read iv: %w", err)
	}

	trailer := io.NewSectionReader(f, hdr.TrailerStart(), st.Size()-hdr.TrailerStart())
	blocks, signStart, err := keywrap.ReadBlocks(trailer, hdr.TrailerStart())
	if err != nil {
		return nil, err
	}
	fi.Blocks = blocks
	fi.SignStart = signStart

	if detached {
		sf, err := os.Open(signPath)
		if err != nil {
			return nil, err
		}
		defer sf.Close()

		// The companion continues where the truncated envelope ends.
		more, signStart, err := keywrap.ReadBlocks(sf, st.Size())
		if err != nil {
			return nil, err
		}
		fi.Blocks = append(fi.Blocks, more...)
		if fi.SignStart < 0 {
			fi.SignStart = signStart
		}
	}

	if err := fi.Blocks.Check(); err != nil {
		return nil, err
	}
	if fi.WrappedKey, err = fi.Blocks.SessionKey(); err != nil {
		return nil, err
	}
	if fi.R, fi.S, err = fi.Blocks.Signature(); err != nil {
		return nil, err
	}
	if fi.SignerRef, err = fi.Blocks.SignerKey(); err != nil {
		return nil, err
	}
	return fi, nil
}

// truncate is replaced in tests.
var truncate = (*os.File).Truncate

// detach moves [at, EOF) of path into signPath and truncates path at at. On
// failure signPath is removed and path is left as it was.
func detach(path, signPath string, at int64) (err error) {
	src, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(signPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create signature file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(signPath)
		}
	}()

	st, err := src.Stat()
	if err != nil {
		dst.Close()
		return err
	}
	if _, err := io.Copy(dst, io.NewSectionReader(src, at, st.Size()-at)); err != nil {
		dst.Close()
		return fmt.Errorf("copy signature blocks: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close signature file: %w", err)
	}
	if err := truncate(src, at); err != nil {
		return fmt.Errorf("truncate envelope: %w", err)
	}
	return nil
}
