package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/vector"
)

// vector_gen writes golden conformance vectors: <name>.cbor holds the
// canonical bytes and <name>.cid its CID. Without -manifest it writes the
// published sample keys.
func main() {
	var (
		outDir       = pflag.String("out", "", "output directory")
		manifestPath = pflag.String("manifest", "", "JSONC manifest of vectors to generate")
		extended     = pflag.Bool("extended", false, "resolve algorithms in the extended digest catalog")
	)
	pflag.Parse()

	if *outDir == "" {
		fmt.Fprintln(os.Stderr, "usage: vector_gen -out <dir> [-manifest <vectors.jsonc>] [-extended]")
		os.Exit(2)
	}

	cfg := derive.Config{}
	if *extended {
		cfg.Digests = digest.Extended()
	}
	d := derive.New(cfg)

	reqs := sampleRequests()
	if *manifestPath != "" {
		m, err := vector.LoadManifest(*manifestPath)
		if err != nil {
			fatalf("load manifest: %v", err)
		}
		if reqs, err = m.Requests(d.Augmentations()); err != nil {
			fatalf("manifest: %v", err)
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fatalf("mkdir: %v", err)
	}
	for i, req := range reqs {
		v, err := vector.Make(context.Background(), d, req)
		if err != nil {
			fatalf("vector.Make %q: %v", req.Input, err)
		}
		b, err := vector.Encode(v)
		if err != nil {
			fatalf("vector.Encode: %v", err)
		}
		id, err := v.CID()
		if err != nil {
			fatalf("cid: %v", err)
		}
		name := fmt.Sprintf("%02d-%s", i, fileName(req))
		writeFile(filepath.Join(*outDir, name+".cbor"), b)
		writeFile(filepath.Join(*outDir, name+".cid"), []byte(id.String()+"\n"))
		fmt.Printf("%s\t%s\n", name, id)
	}
}

// sampleRequests is every sample key at SHA-512/64 with no augmentation,
// plus midnight-signal trimmed at SHA-256.
func sampleRequests() []derive.Request {
	var reqs []derive.Request
	for _, k := range vector.SampleKeys {
		reqs = append(reqs, derive.Request{
			Input:  k,
			Hash:   digest.Spec{Algorithm: digest.SHA512, Rounds: 1},
			Length: derive.DefaultLength,
		})
	}
	return append(reqs, derive.Request{
		Input:   "midnight-signal",
		Hash:    digest.Spec{Algorithm: digest.SHA256, Rounds: 1},
		Augment: augment.Only(augment.Trim),
		Length:  derive.DefaultLength,
	})
}

func fileName(req derive.Request) string {
	alg := strings.ToLower(strings.ReplaceAll(string(req.Hash.Algorithm), "-", ""))
	var b strings.Builder
	for _, r := range req.Input {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= 32 {
			break
		}
	}
	return b.String() + "-" + alg
}

func writeFile(path string, b []byte) {
	if err := os.WriteFile(path, b, 0o644); err != nil {
		fatalf("write %s: %v", path, err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
