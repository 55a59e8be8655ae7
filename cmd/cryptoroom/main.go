// Command cryptoroom creates key containers and encrypts, decrypts and
// verifies files.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/littlerose/cryptoroom"
	"github.com/littlerose/cryptoroom/internal/config"
	"github.com/littlerose/cryptoroom/internal/keystore"
	"github.com/littlerose/cryptoroom/internal/metrics"
)

const usage = `usage: cryptoroom <command> [flags] [file]

commands:
  keygen    create a key container
  encrypt   encrypt and sign a file
  decrypt   verify and decrypt a file
  verify    verify a file signature
  selftest  run the known-answer self tests`

// Environment variables read by the command.
const (
	envConfig   = "CRYPTOROOM_CONFIG"
	envPassword = "CRYPTOROOM_PASSWORD"
)

// EncryptedExt is appended to encrypted file names.
const EncryptedExt = ".enc"

// exitFunc is os.Exit, replaced in tests.
var exitFunc = os.Exit

// Config holds the process streams.
type Config struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultConfig returns a Config using the process streams.
func DefaultConfig() *Config {
	return &Config{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// flags are the union of all command flags; each command registers the
// ones it reads.
type flags struct {
	config   string
	envFile  string
	key      string
	to       string
	from     string
	out      string
	parallel bool
}

// env is what a command runs with.
type env struct {
	cfg      *Config
	flags    *flags
	args     []string
	settings *config.Settings
	logger   *slog.Logger
	metrics  *metrics.Registry
	worker   *cryptoroom.Worker
}

type command struct {
	flags func(fs *flag.FlagSet, f *flags)
	run   func(ctx context.Context, e *env) error
}

var commands = map[string]command{
	"keygen": {
		flags: func(fs *flag.FlagSet, f *flags) {
			fs.StringVar(&f.out, "out", "", "key file to create (default: settings key_file)")
		},
		run: runKeygen,
	},
	"encrypt": {
		flags: func(fs *flag.FlagSet, f *flags) {
			fs.StringVar(&f.key, "key", "", "own key file (default: settings key_file)")
			fs.StringVar(&f.to, "to", "", "recipient key file (default: own key)")
			fs.StringVar(&f.out, "out", "", "output file (default: <file>"+EncryptedExt+")")
		},
		run: runEncrypt,
	},
	"decrypt": {
		flags: func(fs *flag.FlagSet, f *flags) {
			fs.StringVar(&f.key, "key", "", "own key file (default: settings key_file)")
			fs.StringVar(&f.from, "from", "", "sender key file (default: own key)")
			fs.StringVar(&f.out, "out", "", "output file (default: <file> without "+EncryptedExt+")")
			fs.BoolVar(&f.parallel, "parallel", false, "verify and decrypt concurrently")
		},
		run: runDecrypt,
	},
	"verify": {
		flags: func(fs *flag.FlagSet, f *flags) {
			fs.StringVar(&f.from, "from", "", "sender key file (default: settings key_file)")
		},
		run: runVerify,
	},
	"selftest": {
		run: runSelfTest,
	},
}

func run(args []string, cfg *Config) error {
	if len(args) < 2 {
		return errors.New(usage)
	}
	cmd, ok := commands[args[1]]
	if !ok {
		return fmt.Errorf("unknown command: %s\n%s", args[1], usage)
	}

	f := &flags{}
	fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
	fs.SetOutput(cfg.Stderr)
	fs.StringVar(&f.config, "config", os.Getenv(envConfig), "settings file")
	fs.StringVar(&f.envFile, "env", ".env", "dotenv file")
	if cmd.flags != nil {
		cmd.flags(fs, f)
	}
	if err := fs.Parse(args[2:]); err != nil {
		return err
	}

	if err := config.LoadEnv(f.envFile); err != nil {
		return err
	}
	settings, err := config.Load(f.config)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	logger, err := settings.Logger(cfg.Stderr)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	e := &env{
		cfg:      cfg,
		flags:    f,
		args:     fs.Args(),
		settings: settings,
		logger:   logger,
		metrics:  reg,
		worker: cryptoroom.NewWorker(
			cryptoroom.WithLogger(logger),
			cryptoroom.WithMetrics(reg),
		),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = cmd.run(ctx, e)
	if settings.MetricsFile != "" {
		if merr := reg.WriteTextfile(settings.MetricsFile); merr != nil {
			logger.Warn("write metrics", "path", settings.MetricsFile, "error", merr)
		}
	}
	return err
}

func runKeygen(_ context.Context, e *env) error {
	password, err := e.password()
	if err != nil {
		return err
	}
	w, err := e.settings.NewWrapper()
	if err != nil {
		return err
	}

	e.logger.Info("generating keys", "wrapper", w.Name())
	c, err := keystore.Create(e.settings.Owner, password, w)
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	path := e.flags.out
	if path == "" {
		path = e.settings.KeyFile
	}
	if err := c.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(e.cfg.Stdout, "%s %s\n", c.ID(), path)
	return nil
}

func runEncrypt(ctx context.Context, e *env) error {
	src, err := e.file()
	if err != nil {
		return err
	}
	c, keys, err := e.unlock()
	if err != nil {
		return err
	}
	to, _, err := cryptoroom.PublicKeys(c)
	if err != nil {
		return err
	}
	if e.flags.to != "" {
		if to, _, err = loadPublicKeys(e.flags.to); err != nil {
			return err
		}
	}

	dst := e.flags.out
	if dst == "" {
		dst = src + EncryptedExt
	}
	if err := e.worker.EncryptFile(ctx, src, dst, to, keys.Signing); err != nil {
		return err
	}
	fmt.Fprintln(e.cfg.Stdout, dst)
	return nil
}

func runDecrypt(ctx context.Context, e *env) error {
	src, err := e.file()
	if err != nil {
		return err
	}
	c, keys, err := e.unlock()
	if err != nil {
		return err
	}
	_, from, err := cryptoroom.PublicKeys(c)
	if err != nil {
		return err
	}
	if e.flags.from != "" {
		if _, from, err = loadPublicKeys(e.flags.from); err != nil {
			return err
		}
	}

	dst := e.flags.out
	if dst == "" {
		dst = strings.TrimSuffix(src, EncryptedExt)
		if dst == src {
			dst = src + ".dec"
		}
	}

	decrypt := e.worker.DecryptFile
	if e.flags.parallel || e.settings.Parallel {
		decrypt = e.worker.DecryptFileParallel
	}
	if err := decrypt(ctx, src, dst, keys, from); err != nil {
		return err
	}
	fmt.Fprintln(e.cfg.Stdout, dst)
	return nil
}

func runVerify(ctx context.Context, e *env) error {
	src, err := e.file()
	if err != nil {
		return err
	}
	path := e.flags.from
	if path == "" {
		path = e.settings.KeyFile
	}
	_, from, err := loadPublicKeys(path)
	if err != nil {
		return err
	}
	if err := e.worker.VerifyFile(ctx, src, from); err != nil {
		return err
	}
	fmt.Fprintf(e.cfg.Stdout, "%s: signature valid\n", src)
	return nil
}

func runSelfTest(ctx context.Context, e *env) error {
	if err := e.worker.SelfTest(ctx); err != nil {
		return err
	}
	fmt.Fprintf(e.cfg.Stdout, "%d checks passed\n", len(cryptoroom.Checks()))
	return nil
}

func loadPublicKeys(path string) (cryptoroom.Recipient, cryptoroom.Sender, error) {
	c, err := keystore.Load(path)
	if err != nil {
		return cryptoroom.Recipient{}, cryptoroom.Sender{}, err
	}
	return cryptoroom.PublicKeys(c)
}

// file returns the single positional argument.
func (e *env) file() (string, error) {
	if len(e.args) != 1 {
		return "", fmt.Errorf("expected one file argument, got %d", len(e.args))
	}
	return e.args[0], nil
}

func (e *env) unlock() (*keystore.Container, *keystore.Keys, error) {
	path := e.flags.key
	if path == "" {
		path = e.settings.KeyFile
	}
	c, err := keystore.Load(path)
	if err != nil {
		return nil, nil, err
	}
	password, err := e.password()
	if err != nil {
		return nil, nil, err
	}
	keys, err := c.Unlock(password)
	if err != nil {
		return nil, nil, fmt.Errorf("unlock %s: %w", path, err)
	}
	return c, keys, nil
}

// password returns CRYPTOROOM_PASSWORD or the first line of stdin.
func (e *env) password() (string, error) {
	if pw, ok := os.LookupEnv(envPassword); ok {
		return pw, nil
	}
	line, err := bufio.NewReader(e.cfg.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password required on stdin or in " + envPassword)
	}
	return line, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	exitFunc(1)
}
