package keystore

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/littlerose/cryptoroom/internal/envelope"
	"github.com/littlerose/cryptoroom/internal/streebog"
)

const (
	// Extension is the customary key file extension.
	Extension = ".grk"

	// FileTag identifies key files.
	FileTag = "Little Rose radials security protection system "

	hashSize = streebog.Size256

	// HeaderSize is magic, tag, package hash and package length.
	HeaderSize = envelope.MagicSize + len(FileTag) + hashSize + 4

	// packageHeaderSize is the package IV and plaintext length.
	packageHeaderSize = IVSize + 4

	// packageKey seals the container document. It is fixed, so the layer
	// is an integrity check only.
	packageKey = "17dfbfc9acfa787e242d75c7f0764bfd83e79eef08d4581a881527d92dbad1d4"
)

// MarshalBinary encodes c as a complete key file.
func (c *Container) MarshalBinary() ([]byte, error) {
	doc, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode container: %w", err)
	}
	doc, err = charmap.Windows1251.NewEncoder().Bytes(doc)
	if err != nil {
		return nil, fmt.Errorf("container text is not representable in Windows-1251: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(random(), iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}
	if err := cryptSecret(mustHex(packageKey), iv, doc, true); err != nil {
		return nil, err
	}

	pkg := make([]byte, 0, packageHeaderSize+len(doc))
	pkg = append(pkg, iv...)
	pkg = binary.LittleEndian.AppendUint32(pkg, uint32(len(doc)))
	pkg = append(pkg, doc...)

	sum := streebog.Sum256(pkg)
	out := make([]byte, 0, HeaderSize+len(pkg))
	out = append(out, envelope.Magic[:]...)
	out = append(out, FileTag...)
	out = append(out, sum[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pkg)))
	out = append(out, pkg...)
	return out, nil
}

// UnmarshalBinary decodes a key file produced by MarshalBinary.
func (c *Container) UnmarshalBinary(b []byte) error {
	if len(b) == 0 {
		return fileErr(CodeEmptyFile, errors.New("file is empty"))
	}
	if len(b) < HeaderSize {
		return fileErr(CodeShortFile, fmt.Errorf("file is %d bytes, want at least %d", len(b), HeaderSize))
	}
	if !bytes.Equal(b[:envelope.MagicSize], envelope.Magic[:]) {
		return fileErr(CodeBadMagic, errors.New("not a key file for this system"))
	}
	off := envelope.MagicSize
	if string(b[off:off+len(FileTag)]) != FileTag {
		return fileErr(CodeBadTag, errors.New("not a key file for this system"))
	}
	off += len(FileTag)
	sum := b[off : off+hashSize]
	off += hashSize
	n := int64(int32(binary.LittleEndian.Uint32(b[off:])))
	if n < 0 || int64(len(b)) < int64(HeaderSize)+n {
		return fileErr(CodeBadSize, fmt.Errorf("declared package of %d bytes does not fit a %d byte file", n, len(b)))
	}

	pkg := b[HeaderSize : HeaderSize+int(n)]
	if got := streebog.Sum256(pkg); !bytes.Equal(got[:], sum) {
		return fileErr(CodeChecksum, ErrChecksumMismatch)
	}
	if len(pkg) < packageHeaderSize {
		return fileErr(CodeShortPackage, fmt.Errorf("package is %d bytes", len(pkg)))
	}

	if m := binary.LittleEndian.Uint32(pkg[IVSize:]); int64(m) != int64(len(pkg)-packageHeaderSize) {
		return fileErr(CodeBadSize, fmt.Errorf("package declares %d document bytes, holds %d", m, len(pkg)-packageHeaderSize))
	}

	doc := bytes.Clone(pkg[packageHeaderSize:])
	if err := cryptSecret(mustHex(packageKey), pkg[:IVSize], doc, false); err != nil {
		return fileErr(CodeBadDocument, err)
	}
	text, err := charmap.Windows1251.NewDecoder().Bytes(doc)
	if err != nil {
		return fileErr(CodeBadDocument, err)
	}
	if !bytes.Contains(text, []byte("<PkContainer>")) {
		return fileErr(CodeNoRoot, errors.New("container root element not found"))
	}

	dec := xml.NewDecoder(bytes.NewReader(text))
	// text is already UTF-8 whatever the declaration says
	dec.CharsetReader = func(label string, r io.Reader) (io.Reader, error) {
		switch strings.ToLower(label) {
		case "utf-8", "utf-16", "windows-1251":
			return r, nil
		}
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	var out Container
	if err := dec.Decode(&out); err != nil {
		return fileErr(CodeBadDocument, err)
	}
	*c = out
	return nil
}

// Save writes c to path, replacing any existing file.
func (c *Container) Save(path string) error {
	raw, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// Load reads the key file at path.
func Load(path string) (*Container, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var c Container
	if err := c.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return &c, nil
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
