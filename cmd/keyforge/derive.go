package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/spf13/pflag"

	"xdao.co/keyforge/alphabet"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/rpc"
	"xdao.co/keyforge/vector"
)

func cmdDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("derive", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf requestFlags
	var target string
	rf.register(fs)
	fs.StringVar(&target, "grpc-target", "", "Derive on a keyforged server instead of locally")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge derive [flags] <key>")
		return 2
	}

	_, d, req, err := rf.setup(fs, errOut)
	if err != nil {
		return reportError(errOut, "derive", err)
	}
	req.Input = fs.Arg(0)

	var encoded string
	if target != "" {
		c, err := rpc.Dial(target, rpc.DialOptions{})
		if err != nil {
			return reportError(errOut, "dial", err)
		}
		defer c.Close()
		encoded, err = c.Derive(context.Background(), req)
		if err != nil {
			return reportError(errOut, "derive", err)
		}
	} else {
		encoded, err = d.DisplayHash(context.Background(), req)
		if err != nil {
			return reportError(errOut, "derive", err)
		}
	}
	fmt.Fprintln(out, encoded)
	return 0
}

func cmdBytes(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("bytes", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf requestFlags
	rf.register(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: keyforge bytes [flags] <key>")
		return 2
	}

	_, d, req, err := rf.setup(fs, errOut)
	if err != nil {
		return reportError(errOut, "bytes", err)
	}
	req.Input = fs.Arg(0)
	res, err := d.Derive(context.Background(), req)
	if err != nil {
		return reportError(errOut, "bytes", err)
	}
	fmt.Fprintln(out, hex.EncodeToString(res.Bytes))
	return 0
}

func cmdCatalog(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("catalog", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, target string
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&target, "grpc-target", "", "Show a keyforged server's catalog")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if target != "" {
		c, err := rpc.Dial(target, rpc.DialOptions{})
		if err != nil {
			return reportError(errOut, "dial", err)
		}
		defer c.Close()
		info, err := c.Catalog(context.Background())
		if err != nil {
			return reportError(errOut, "catalog", err)
		}
		fmt.Fprintf(out, "alphabet (%d): %s\n", len(info.Alphabet), info.Alphabet)
		fmt.Fprintln(out, "algorithms:")
		for _, a := range info.Algorithms {
			fmt.Fprintf(out, "  %s\t%d bytes\n", a.ID, a.Size)
		}
		fmt.Fprintln(out, "augmentations:")
		for _, id := range info.Augmentations {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return 0
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return reportError(errOut, "config", err)
	}
	d := cfg.Deriver(nil)
	fmt.Fprintf(out, "alphabet (%d): %s\n", alphabet.Size, alphabet.Symbols)
	fmt.Fprintln(out, "algorithms:")
	for _, a := range d.Digests().Algorithms() {
		fmt.Fprintf(out, "  %s\t%d bytes\n", a.ID, a.Size)
	}
	fmt.Fprintln(out, "augmentations:")
	for _, s := range d.Augmentations().Steps() {
		fmt.Fprintf(out, "  %s\t%s\n", s.ID, s.Label)
	}
	return 0
}

func cmdSample(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("sample", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var all bool
	fs.BoolVar(&all, "all", false, "Print every sample key")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if all {
		for _, k := range vector.SampleKeys {
			fmt.Fprintln(out, k)
		}
		return 0
	}
	fmt.Fprintln(out, vector.SampleKeys[rand.IntN(len(vector.SampleKeys))])
	return 0
}

// cmdWatch derives every stdin line concurrently and prints a result only
// if no newer line was read before it completed.
func cmdWatch(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var rf requestFlags
	rf.register(fs)
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	_, d, tmpl, err := rf.setup(fs, errOut)
	if err != nil {
		return reportError(errOut, "watch", err)
	}

	var (
		latest derive.Latest
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		req := tmpl
		req.Input = sc.Text()
		ticket := latest.Begin()
		wg.Add(1)
		go func() {
			defer wg.Done()
			encoded, err := d.DisplayHash(context.Background(), req)

			mu.Lock()
			defer mu.Unlock()
			if !latest.Current(ticket) {
				return
			}
			switch {
			case derive.IsKind(err, derive.KindEmptyInput):
				fmt.Fprintln(out, "(waiting for input)")
			case err != nil:
				reportError(errOut, "watch", err)
			default:
				fmt.Fprintln(out, encoded)
			}
		}()
	}
	wg.Wait()
	if err := sc.Err(); err != nil {
		return reportError(errOut, "read", err)
	}
	return 0
}
