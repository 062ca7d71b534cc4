package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"xdao.co/keyforge/config"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/rpc"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/storage/casregistry"

	_ "xdao.co/keyforge/storage/badgerstore"
	_ "xdao.co/keyforge/storage/ipfs"
	_ "xdao.co/keyforge/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "derive":
		return cmdDerive(args[1:], out, errOut)
	case "bytes":
		return cmdBytes(args[1:], out, errOut)
	case "catalog":
		return cmdCatalog(args[1:], out, errOut)
	case "sample":
		return cmdSample(args[1:], out, errOut)
	case "watch":
		return cmdWatch(args[1:], in, out, errOut)
	case "vector":
		return cmdVector(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "keyforge: derive fixed-length printable strings from text keys")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  keyforge derive [-a <alg>] [-r <rounds>] [-n <length>] [--aug <id>,...] [--grpc-target <addr>] <key>")
	fmt.Fprintln(w, "  keyforge bytes  [-a <alg>] [-r <rounds>] [-n <length>] [--aug <id>,...] <key>")
	fmt.Fprintln(w, "  keyforge catalog [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge sample [--all]")
	fmt.Fprintln(w, "  keyforge watch  [-a <alg>] [-r <rounds>] [-n <length>] [--aug <id>,...]")
	fmt.Fprintln(w, "  keyforge vector make [request flags] [--out <file>] <key>")
	fmt.Fprintln(w, "  keyforge vector make --manifest <file.jsonc> [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge vector verify <file>")
	fmt.Fprintln(w, "  keyforge vector cid <file>")
	fmt.Fprintln(w, "  keyforge vector put <file> [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge vector get <cid> [--json] [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge vector export [--out <file.tar>] [--grpc-target <addr>] <cid>...")
	fmt.Fprintln(w, "  keyforge vector import [--verify] [--require-signature] [--grpc-target <addr>] <file.tar>")
	fmt.Fprintln(w, "  keyforge vector sign <file> [--alg ed25519|dilithium3] (--seed-hex <64hex> | --signer <name> [--purpose <p>] | --key-file <path>) [--out <file>]")
	fmt.Fprintln(w, "  keyforge vector verify-sig <file>")
	fmt.Fprintln(w, "  keyforge key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  keyforge key derive --from <name> --purpose <purpose> [--force]")
	fmt.Fprintln(w, "  keyforge key list")
	fmt.Fprintln(w, "  keyforge key pub --name <name> [--purpose <p>] [--alg ed25519|dilithium3]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - every command accepts --config <file>; otherwise $KEYFORGE_CONFIG is read if set")
	fmt.Fprintln(w, "  - request flags left unset take their values from the config defaults")
	fmt.Fprintln(w, "  - --aug none disables augmentation; ids apply in the order given")
	fmt.Fprintln(w, "  - vector make/sign write canonical CBOR bytes (no trailing newline)")
	fmt.Fprintln(w, "  - sample keys are public; never use them as real secrets")
}

// loadConfig reads path, or $KEYFORGE_CONFIG when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newLogger(w io.Writer, cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(cfg.Level())
	return log
}

// requestFlags are the flags every deriving command shares.
type requestFlags struct {
	configPath string
	algorithm  string
	rounds     int
	length     int
	augs       []string
}

func (f *requestFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVarP(&f.algorithm, "algorithm", "a", "", "Digest algorithm, e.g. SHA-256")
	fs.IntVarP(&f.rounds, "rounds", "r", 0, "Digest rounds (>= 1)")
	fs.IntVarP(&f.length, "length", "n", 0, "Output length in characters (>= 1)")
	fs.StringSliceVar(&f.augs, "aug", nil, "Augmentation step ids, in order; 'none' disables")
}

// setup loads the config and builds the Deriver and the request template
// the flags describe.
func (f *requestFlags) setup(fs *pflag.FlagSet, errOut io.Writer) (*config.Config, *derive.Deriver, derive.Request, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, nil, derive.Request{}, err
	}
	d := cfg.Deriver(newLogger(errOut, cfg))
	req, err := cfg.Request()
	if err != nil {
		return nil, nil, derive.Request{}, err
	}
	if fs.Changed("algorithm") {
		req.Hash.Algorithm = digest.ID(f.algorithm)
	}
	if fs.Changed("rounds") {
		req.Hash.Rounds = f.rounds
	}
	if fs.Changed("length") {
		req.Length = f.length
	}
	if fs.Changed("aug") {
		if req.Augment, err = d.Selection(f.augs); err != nil {
			return nil, nil, derive.Request{}, err
		}
	}
	return cfg, d, req, nil
}

// openStore opens the configured vector store and its mirrors, or a
// remote store when target is set.
func openStore(cfg *config.Config, target string) (storage.CAS, func() error, error) {
	if target != "" {
		c, err := rpc.Dial(target, rpc.DialOptions{})
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil
	}
	return casregistry.OpenAll(cfg.StoreTargets())
}

// reportError prints err and returns the exit code for it: 1 for
// derivation failures and runtime errors.
func reportError(errOut io.Writer, what string, err error) int {
	var de *derive.Error
	if errors.As(err, &de) {
		fmt.Fprintf(errOut, "%s: %s [%s]: %v\n", what, de.Kind, de.RuleID, de)
		return 1
	}
	fmt.Fprintf(errOut, "%s: %v\n", what, err)
	return 1
}

func parseFlags(fs *pflag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}
