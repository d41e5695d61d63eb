// Command treecrypt encrypts or decrypts a file or directory tree in place.
//
//	treecrypt -e [-c] -k secret.key <path>
//	treecrypt -d -k secret.key <path>
//
// The key file is generated on first use. With -p the key file holds the
// salt for a passphrase instead of the key itself.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/absfs/absfs"
	"github.com/absfs/osfs"
	"github.com/absfs/treecrypt"
	"github.com/charmbracelet/log"
	"golang.org/x/term"
)

type options struct {
	encrypt     bool
	decrypt     bool
	compress    bool
	keyPath     string
	keyEnv      string
	passphrase  bool
	names       string
	cipher      string
	preserveExt bool
	dirNames    bool
	verbose     bool
	path        string
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fset := flag.NewFlagSet("treecrypt", flag.ContinueOnError)
	fset.BoolVar(&opts.encrypt, "e", false, "encrypt the path")
	fset.BoolVar(&opts.decrypt, "d", false, "decrypt the path")
	fset.BoolVar(&opts.compress, "c", false, "pack directories into archives before encrypting them")
	fset.StringVar(&opts.keyPath, "k", "", "key file (.key), created if missing")
	fset.StringVar(&opts.keyEnv, "key-env", "", "read a hex or base64 key from this environment variable")
	fset.BoolVar(&opts.passphrase, "p", false, "derive the key from a passphrase, keeping the salt in the key file")
	fset.StringVar(&opts.names, "names", "random", "filename encryption: random, deterministic or none")
	fset.StringVar(&opts.cipher, "cipher", "aes-256-gcm", "cipher suite: aes-256-gcm or chacha20-poly1305")
	fset.BoolVar(&opts.preserveExt, "preserve-ext", false, "keep file extensions readable")
	fset.BoolVar(&opts.dirNames, "dir-names", false, "also encrypt directory names")
	fset.BoolVar(&opts.verbose, "v", false, "debug logging")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if opts.encrypt == opts.decrypt {
		return nil, errors.New("specify exactly one of -e (encrypt) or -d (decrypt)")
	}
	if fset.NArg() != 1 {
		return nil, errors.New("specify one path to encrypt or decrypt")
	}
	opts.path = fset.Arg(0)

	if opts.keyEnv == "" {
		if opts.keyPath == "" {
			return nil, errors.New("specify the key file with -k")
		}
		if filepath.Ext(opts.keyPath) != ".key" {
			return nil, errors.New("only .key files are allowed")
		}
	}
	if opts.passphrase && opts.keyPath == "" {
		return nil, errors.New("-p needs a key file to hold the salt")
	}
	return opts, nil
}

// hostPath returns p as an absolute slash separated path, the form the
// walker splits leaf names on
func hostPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

func keyProvider(fs absfs.FileSystem, opts *options, logger *log.Logger) (treecrypt.KeyProvider, error) {
	if opts.keyEnv != "" {
		return treecrypt.NewEnvKeyProvider(opts.keyEnv), nil
	}

	name, err := hostPath(opts.keyPath)
	if err != nil {
		return nil, err
	}
	if _, err := fs.Stat(name); errors.Is(err, os.ErrNotExist) {
		logger.Info("generating key file", "path", opts.keyPath)
	}
	if !opts.passphrase {
		return treecrypt.NewFileKeyProvider(fs, name), nil
	}

	salt, err := treecrypt.LoadOrCreateKeyFile(fs, name)
	if err != nil {
		return nil, err
	}
	pass, err := readPassphrase(opts.encrypt)
	if err != nil {
		return nil, err
	}
	return treecrypt.NewPasswordKeyProvider(pass, salt, treecrypt.Argon2idParams{}), nil
}

func readPassphrase(confirm bool) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return []byte(strings.TrimRight(line, "\r\n")), nil
	}

	fmt.Fprint(os.Stderr, "Passphrase: ")
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return pass, nil
	}

	fmt.Fprint(os.Stderr, "Repeat passphrase: ")
	again, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if string(pass) != string(again) {
		return nil, errors.New("passphrases do not match")
	}
	return pass, nil
}

func run(opts *options, logger *log.Logger) error {
	suite, err := treecrypt.ParseCipherSuite(opts.cipher)
	if err != nil {
		return err
	}
	names, err := treecrypt.ParseFilenameEncryption(opts.names)
	if err != nil {
		return err
	}

	config := &treecrypt.Config{
		Cipher:             suite,
		FilenameEncryption: names,
		PreserveExtensions: opts.preserveExt,
		EncryptDirNames:    opts.dirNames,
		Logger:             logger,
	}

	fs, err := osfs.NewFS()
	if err != nil {
		return err
	}

	kp, err := keyProvider(fs, opts, logger)
	if err != nil {
		return err
	}

	target, err := hostPath(opts.path)
	if err != nil {
		return err
	}

	tc, err := treecrypt.NewWithProvider(fs, kp, config)
	if err != nil {
		return err
	}

	var result string
	if opts.encrypt {
		logger.Info("encrypting", "path", opts.path, "compress", opts.compress)
		result, err = tc.Encrypt(target, opts.compress)
	} else {
		logger.Info("decrypting", "path", opts.path)
		result, err = tc.Decrypt(target)
	}
	if err != nil {
		return err
	}

	fmt.Println(filepath.FromSlash(result))
	return nil
}

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "treecrypt",
		ReportTimestamp: true,
	})

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.Error("invalid arguments", "err", err)
		os.Exit(1)
	}
	if opts.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(opts, logger); err != nil {
		logger.Error("failed", "err", err)
		os.Exit(1)
	}
}
