package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"xdao.co/keyforge/keys"
	"xdao.co/keyforge/vector"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "pub":
		return cmdKeyPub(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "keyforge key: signer seeds for vector signatures")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  keyforge key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  keyforge key derive --from <name> --purpose <purpose> [--force]")
	fmt.Fprintln(w, "  keyforge key list")
	fmt.Fprintln(w, "  keyforge key pub --name <name> [--purpose <p>] [--alg ed25519|dilithium3]")
}

// keyStore opens the store named by the config's keys.dir.
func keyStore(configPath string) (*keys.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return keys.NewStore(cfg.Keys.Dir)
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key init", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, name, seedHex string
	var force bool
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&name, "name", "", "Signer name")
	fs.StringVar(&seedHex, "seed-hex", "", "Seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing seed")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if err := keys.CheckName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		if seed, err = keys.ParseSeedHex(seedHex); err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			return reportError(errOut, "rand", err)
		}
	}

	ks, err := keyStore(configPath)
	if err != nil {
		return reportError(errOut, "keys", err)
	}
	path, err := ks.Init(name, seed, force)
	if err != nil {
		return reportError(errOut, "write key", err)
	}
	pub, err := keys.PublicKey(vector.AlgEd25519, seed)
	if err != nil {
		return reportError(errOut, "public key", err)
	}
	fmt.Fprintf(out, "Created signer: %s\n", pub)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key derive", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, from, purpose string
	var force bool
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&from, "from", "", "Signer name")
	fs.StringVar(&purpose, "purpose", "", "Purpose, e.g. release or nightly")
	fs.BoolVar(&force, "force", false, "Overwrite an existing seed")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if from == "" || purpose == "" {
		fmt.Fprintln(errOut, "usage: keyforge key derive --from <name> --purpose <purpose>")
		return 2
	}
	ks, err := keyStore(configPath)
	if err != nil {
		return reportError(errOut, "keys", err)
	}
	path, err := ks.Derive(from, purpose, force)
	if err != nil {
		return reportError(errOut, "derive key", err)
	}
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key list", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	ks, err := keyStore(configPath)
	if err != nil {
		return reportError(errOut, "keys", err)
	}
	names, err := ks.Names()
	if err != nil {
		return reportError(errOut, "list keys", err)
	}
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return 0
}

func cmdKeyPub(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("key pub", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, name, purpose, alg string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&name, "name", "", "Signer name")
	fs.StringVar(&purpose, "purpose", "", "Purpose key of --name")
	fs.StringVar(&alg, "alg", vector.AlgEd25519, "Signature algorithm: ed25519 or dilithium3")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	ks, err := keyStore(configPath)
	if err != nil {
		return reportError(errOut, "keys", err)
	}
	seed, err := ks.Seed(name, purpose)
	if err != nil {
		return reportError(errOut, "read key", err)
	}
	pub, err := keys.PublicKey(alg, seed)
	if err != nil {
		return reportError(errOut, "public key", err)
	}
	fmt.Fprintln(out, pub)
	return 0
}
