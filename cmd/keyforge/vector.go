package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/pflag"

	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/keys"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/storage/bundle"
	"xdao.co/keyforge/vector"
)

func cmdVector(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printVectorUsage(errOut)
		return 2
	}
	switch args[0] {
	case "make":
		return cmdVectorMake(args[1:], out, errOut)
	case "verify":
		return cmdVectorVerify(args[1:], out, errOut)
	case "cid":
		return cmdVectorCID(args[1:], out, errOut)
	case "put":
		return cmdVectorPut(args[1:], out, errOut)
	case "get":
		return cmdVectorGet(args[1:], out, errOut)
	case "list":
		return cmdVectorList(args[1:], out, errOut)
	case "export":
		return cmdVectorExport(args[1:], out, errOut)
	case "import":
		return cmdVectorImport(args[1:], out, errOut)
	case "sign":
		return cmdVectorSign(args[1:], out, errOut)
	case "verify-sig":
		return cmdVectorVerifySig(args[1:], out, errOut)
	case "help", "-h", "--help":
		printVectorUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown vector subcommand: %s\n\n", args[0])
		printVectorUsage(errOut)
		return 2
	}
}

func printVectorUsage(w io.Writer) {
	fmt.Fprintln(w, "keyforge vector: conformance vectors (canonical CBOR, CIDv1 raw/sha2-256)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  keyforge vector make [request flags] [--out <file>] <key>")
	fmt.Fprintln(w, "  keyforge vector make --manifest <file.jsonc> [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge vector verify <file>")
	fmt.Fprintln(w, "  keyforge vector cid <file>")
	fmt.Fprintln(w, "  keyforge vector put <file> [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge vector get <cid> [--json] [--grpc-target <addr>]")
	fmt.Fprintln(w, "  keyforge vector list")
	fmt.Fprintln(w, "  keyforge vector export [--out <file.tar>] [--grpc-target <addr>] <cid>...")
	fmt.Fprintln(w, "  keyforge vector import [--verify] [--require-signature] [--grpc-target <addr>] <file.tar>")
	fmt.Fprintln(w, "  keyforge vector sign <file> [--alg ed25519|dilithium3] (--seed-hex <64hex> | --signer <name> [--purpose <p>] | --key-file <path>) [--out <file>]")
	fmt.Fprintln(w, "  keyforge vector verify-sig <file>")
}

func readVector(path string) (*vector.Vector, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return vector.Decode(b)
}

// writeVector writes the canonical encoding of v to path, or to out when
// path is empty.
func writeVector(v *vector.Vector, path string, out io.Writer) error {
	b, err := vector.Encode(v)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = out.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func cmdVectorMake(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector make", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf requestFlags
	var outPath, manifestPath, target string
	rf.register(fs)
	fs.StringVarP(&outPath, "out", "o", "", "Write the vector to this file instead of stdout")
	fs.StringVar(&manifestPath, "manifest", "", "Make and store one vector per manifest entry, printing CIDs")
	fs.StringVar(&target, "grpc-target", "", "Store manifest vectors on a keyforged server")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if (manifestPath == "") == (fs.NArg() == 0) || fs.NArg() > 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector make [flags] <key> | --manifest <file>")
		return 2
	}

	cfg, d, req, err := rf.setup(fs, errOut)
	if err != nil {
		return reportError(errOut, "vector make", err)
	}
	ctx := context.Background()

	if manifestPath == "" {
		req.Input = fs.Arg(0)
		v, err := vector.Make(ctx, d, req)
		if err != nil {
			return reportError(errOut, "vector make", err)
		}
		if err := writeVector(v, outPath, out); err != nil {
			return reportError(errOut, "write vector", err)
		}
		return 0
	}

	m, err := vector.LoadManifest(manifestPath)
	if err != nil {
		return reportError(errOut, "manifest", err)
	}
	reqs, err := m.Requests(d.Augmentations())
	if err != nil {
		return reportError(errOut, "manifest", err)
	}
	cas, closeFn, err := openStore(cfg, target)
	if err != nil {
		return reportError(errOut, "open store", err)
	}
	defer closeFn()
	for _, r := range reqs {
		v, err := vector.Make(ctx, d, r)
		if err != nil {
			return reportError(errOut, fmt.Sprintf("vector make %q", r.Input), err)
		}
		id, err := storage.PutVector(cas, v)
		if err != nil {
			return reportError(errOut, "put", err)
		}
		fmt.Fprintln(out, id)
	}
	return 0
}

func cmdVectorVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector verify", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector verify <file>")
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	v, err := readVector(fs.Arg(0))
	if err != nil {
		return reportError(errOut, "read vector", err)
	}
	if err := vector.Verify(context.Background(), cfg.Deriver(nil), v); err != nil {
		return reportError(errOut, "verify", err)
	}
	if v.Signature != nil {
		if err := vector.VerifySignature(v); err != nil {
			return reportError(errOut, "verify", err)
		}
	}
	id, err := v.CID()
	if err != nil {
		return reportError(errOut, "cid", err)
	}
	fmt.Fprintf(out, "ok %s\n", id)
	return 0
}

func cmdVectorCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector cid", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector cid <file>")
		return 2
	}
	v, err := readVector(fs.Arg(0))
	if err != nil {
		return reportError(errOut, "invalid vector", err)
	}
	id, err := v.CID()
	if err != nil {
		return reportError(errOut, "cid", err)
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdVectorPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector put", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, target string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&target, "grpc-target", "", "Store on a keyforged server")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector put <file>")
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	v, err := readVector(fs.Arg(0))
	if err != nil {
		return reportError(errOut, "invalid vector", err)
	}
	cas, closeFn, err := openStore(cfg, target)
	if err != nil {
		return reportError(errOut, "open store", err)
	}
	defer closeFn()
	id, err := storage.PutVector(cas, v)
	if err != nil {
		return reportError(errOut, "put", err)
	}
	fmt.Fprintln(out, id)
	return 0
}

func cmdVectorGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector get", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, target string
	var asJSON bool
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&target, "grpc-target", "", "Fetch from a keyforged server")
	fs.BoolVar(&asJSON, "json", false, "Print the vector as JSON instead of CBOR")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector get <cid>")
		return 2
	}
	id, err := cidutil.Decode(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "invalid cid: %v\n", err)
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	cas, closeFn, err := openStore(cfg, target)
	if err != nil {
		return reportError(errOut, "open store", err)
	}
	defer closeFn()
	v, err := storage.GetVector(cas, id)
	if err != nil {
		return reportError(errOut, "get", err)
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return reportError(errOut, "encode", err)
		}
		return 0
	}
	if err := writeVector(v, "", out); err != nil {
		return reportError(errOut, "write vector", err)
	}
	return 0
}

func cmdVectorList(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector list", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: keyforge vector list")
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	cas, closeFn, err := openStore(cfg, "")
	if err != nil {
		return reportError(errOut, "open store", err)
	}
	defer closeFn()
	l, ok := cas.(storage.Lister)
	if !ok {
		return reportError(errOut, "list", fmt.Errorf("%s: %w", cfg.Store.Backend, storage.ErrNotListable))
	}
	ids, err := l.List()
	if err != nil {
		return reportError(errOut, "list", err)
	}
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return 0
}

func cmdVectorExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector export", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, target, outPath string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&target, "grpc-target", "", "Read from a keyforged server")
	fs.StringVarP(&outPath, "out", "o", "", "Write the bundle to this file instead of stdout")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: keyforge vector export [flags] <cid>...")
		return 2
	}
	ids := make([]cid.Cid, 0, fs.NArg())
	for _, s := range fs.Args() {
		id, err := cidutil.Decode(s)
		if err != nil {
			fmt.Fprintf(errOut, "invalid cid %q: %v\n", s, err)
			return 2
		}
		ids = append(ids, id)
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	cas, closeFn, err := openStore(cfg, target)
	if err != nil {
		return reportError(errOut, "open store", err)
	}
	defer closeFn()

	w := out
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return reportError(errOut, "export", err)
		}
		defer f.Close()
		w = f
	}
	if err := bundle.Export(w, cas, ids); err != nil {
		return reportError(errOut, "export", err)
	}
	return 0
}

func cmdVectorImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector import", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, target string
	var verify, requireSig bool
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&target, "grpc-target", "", "Store on a keyforged server")
	fs.BoolVar(&verify, "verify", false, "Re-derive every vector before storing it")
	fs.BoolVar(&requireSig, "require-signature", false, "Reject vectors without a valid signature")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector import [flags] <file.tar>")
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return reportError(errOut, "import", err)
	}
	defer f.Close()
	cas, closeFn, err := openStore(cfg, target)
	if err != nil {
		return reportError(errOut, "open store", err)
	}
	defer closeFn()

	opts := bundle.ImportOptions{RequireSignature: requireSig}
	if verify {
		opts.Deriver = cfg.Deriver(nil)
	}
	ids, err := bundle.Import(context.Background(), f, cas, opts)
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	if err != nil {
		return reportError(errOut, "import", err)
	}
	return 0
}

// signerFlags pick the seed a vector is signed with.
type signerFlags struct {
	seedHex string
	signer  string
	purpose string
	keyFile string
}

func (f *signerFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.seedHex, "seed-hex", "", "Signing seed as 64 hex chars")
	fs.StringVar(&f.signer, "signer", "", "Signer name in the key store")
	fs.StringVar(&f.purpose, "purpose", "", "Purpose key of --signer")
	fs.StringVar(&f.keyFile, "key-file", "", "File holding a hex seed")
}

func (f *signerFlags) seed(keysDir string) ([]byte, error) {
	switch {
	case f.seedHex != "":
		return keys.ParseSeedHex(f.seedHex)
	case f.keyFile != "":
		return keys.ReadSeedFile(f.keyFile)
	case f.signer != "":
		ks, err := keys.NewStore(keysDir)
		if err != nil {
			return nil, err
		}
		return ks.Seed(f.signer, f.purpose)
	default:
		return nil, errors.New("no signer provided (use --seed-hex, --signer or --key-file)")
	}
}

func cmdVectorSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector sign", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, alg, outPath string
	var sf signerFlags
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&alg, "alg", vector.AlgEd25519, "Signature algorithm: ed25519 or dilithium3")
	fs.StringVarP(&outPath, "out", "o", "", "Write the signed vector to this file instead of stdout")
	sf.register(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector sign <file> [flags]")
		return 2
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	seed, err := sf.seed(cfg.Keys.Dir)
	if err != nil {
		return reportError(errOut, "signer", err)
	}
	v, err := readVector(fs.Arg(0))
	if err != nil {
		return reportError(errOut, "invalid vector", err)
	}
	if err := keys.Sign(v, alg, seed); err != nil {
		return reportError(errOut, "sign", err)
	}
	if err := writeVector(v, outPath, out); err != nil {
		return reportError(errOut, "write vector", err)
	}
	return 0
}

func cmdVectorVerifySig(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("vector verify-sig", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge vector verify-sig <file>")
		return 2
	}
	v, err := readVector(fs.Arg(0))
	if err != nil {
		return reportError(errOut, "invalid vector", err)
	}
	if err := vector.VerifySignature(v); err != nil {
		return reportError(errOut, "verify-sig", err)
	}
	fmt.Fprintf(out, "ok %s %x\n", v.Signature.Alg, v.Signature.PublicKey)
	return 0
}
