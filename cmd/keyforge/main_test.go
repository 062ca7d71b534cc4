package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/rpc"
	"xdao.co/keyforge/storage/localfs"
	"xdao.co/keyforge/vector"
)

const (
	midnightSHA256 = "8=[1?M2N!u}71w\"y0UwwEs%WZpRvz.R1>oPi&2ofdXkZ5cQP1`5'|HPkbpRsR8u6"
	midnightSHA512 = "opz,DMk$tDR$ezx+D$L<AOgPd{dp2s~G`NT]Oz.Wb\"3H]Et!!#UeZ1aSbt2474WX"
	testSeedHex    = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
)

// withConfig points KEYFORGE_CONFIG at a config whose store and key
// directories live under a temp dir.
func withConfig(t *testing.T, extra string) string {
	t.Helper()
	return withBackend(t, "localfs", extra)
}

func withBackend(t *testing.T, backend, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "keyforge.yaml")
	content := "store:\n  backend: " + backend + "\n  dir: " + filepath.Join(dir, "vectors") +
		"\nkeys:\n  dir: " + filepath.Join(dir, "keys") + "\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("KEYFORGE_CONFIG", path)
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestUsage(t *testing.T) {
	code, _, errOut := runCLI(t, "")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage:")

	code, _, errOut = runCLI(t, "", "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command: frobnicate")

	code, out, _ := runCLI(t, "", "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "keyforge derive")
}

func TestDerive(t *testing.T) {
	withConfig(t, "")

	code, out, errOut := runCLI(t, "", "derive", "-a", "SHA-256", "--aug", "trim", "midnight-signal")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, midnightSHA256+"\n", out)

	// Config defaults: SHA-512, one round, 64 characters, trimmed.
	code, out, _ = runCLI(t, "", "derive", "  midnight-signal ")
	require.Equal(t, 0, code)
	assert.Equal(t, midnightSHA512+"\n", out)

	code, out, _ = runCLI(t, "", "derive", "--aug", "kebab", "-a", "SHA-384", "-r", "2", "-n", "10", "Hello World")
	require.Equal(t, 0, code)
	assert.Equal(t, "F=izQX>`KX\n", out)
}

func TestDeriveFailures(t *testing.T) {
	withConfig(t, "")

	code, _, errOut := runCLI(t, "", "derive", "   ")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "EmptyInput [KF-INPUT-001]")

	code, _, errOut = runCLI(t, "", "derive", "--aug", "alnum", "!!!")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "KF-INPUT-002")

	code, _, errOut = runCLI(t, "", "derive", "--aug", "shout", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "KF-REQ-003")

	code, _, errOut = runCLI(t, "", "derive", "-a", "BLAKE3", "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "DigestFailure")

	code, _, _ = runCLI(t, "", "derive")
	assert.Equal(t, 2, code)
}

func TestExtendedCatalogFromConfig(t *testing.T) {
	withConfig(t, "catalog: extended\n")
	code, out, errOut := runCLI(t, "", "derive", "-a", "BLAKE3", "-n", "16", "x")
	require.Equal(t, 0, code, errOut)
	assert.Len(t, strings.TrimSuffix(out, "\n"), 16)
}

func TestBytes(t *testing.T) {
	withConfig(t, "")
	code, out, _ := runCLI(t, "", "bytes", "-a", "SHA-256", "-n", "4", "midnight-signal")
	require.Equal(t, 0, code)
	sum := sha256.Sum256([]byte("midnight-signal"))
	assert.Equal(t, hex.EncodeToString(sum[:4])+"\n", out)
}

func TestCatalogAndSample(t *testing.T) {
	withConfig(t, "")
	code, out, _ := runCLI(t, "", "catalog")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "alphabet (94)")
	assert.Contains(t, out, "SHA-512\t64 bytes")
	assert.Contains(t, out, "kebab\t")
	assert.NotContains(t, out, "BLAKE3")

	code, out, _ = runCLI(t, "", "sample", "--all")
	require.Equal(t, 0, code)
	assert.Equal(t, strings.Join(vector.SampleKeys, "\n")+"\n", out)

	code, out, _ = runCLI(t, "", "sample")
	require.Equal(t, 0, code)
	assert.Contains(t, vector.SampleKeys, strings.TrimSpace(out))
}

func TestWatchPrintsNewestResult(t *testing.T) {
	withConfig(t, "")
	code, out, _ := runCLI(t, "copper-lantern\nwaveform-11\nmidnight-signal\n", "watch")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	assert.LessOrEqual(t, len(lines), 3)
	assert.Contains(t, lines, midnightSHA512)

	code, out, _ = runCLI(t, "   \n", "watch")
	require.Equal(t, 0, code)
	assert.Equal(t, "(waiting for input)\n", out)
}

func TestVectorLifecycle(t *testing.T) {
	dir := withConfig(t, "")
	vecPath := filepath.Join(dir, "midnight.cbor")

	code, _, errOut := runCLI(t, "", "vector", "make", "-a", "SHA-256", "--out", vecPath, "midnight-signal")
	require.Equal(t, 0, code, errOut)

	code, out, _ := runCLI(t, "", "vector", "cid", vecPath)
	require.Equal(t, 0, code)
	id := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(id, "b"), "CIDv1 base32: %s", id)

	code, out, _ = runCLI(t, "", "vector", "verify", vecPath)
	require.Equal(t, 0, code)
	assert.Equal(t, "ok "+id+"\n", out)

	code, out, _ = runCLI(t, "", "vector", "put", vecPath)
	require.Equal(t, 0, code)
	assert.Equal(t, id+"\n", out)

	code, out, _ = runCLI(t, "", "vector", "get", "--json", id)
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"output": "8=[1?M2N`)

	code, out, _ = runCLI(t, "", "vector", "get", id)
	require.Equal(t, 0, code)
	onDisk, err := os.ReadFile(vecPath)
	require.NoError(t, err)
	assert.Equal(t, string(onDisk), out)

	code, _, errOut = runCLI(t, "", "vector", "verify-sig", vecPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not signed")

	signed := filepath.Join(dir, "signed.cbor")
	code, _, errOut = runCLI(t, "", "vector", "sign", vecPath, "--seed-hex", testSeedHex, "--out", signed)
	require.Equal(t, 0, code, errOut)
	code, out, _ = runCLI(t, "", "vector", "verify-sig", signed)
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "ok ed25519 "))

	code, _, _ = runCLI(t, "", "vector", "verify", signed)
	assert.Equal(t, 0, code)

	code, _, _ = runCLI(t, "", "vector", "get", "not-a-cid")
	assert.Equal(t, 2, code)

	code, out, errOut = runCLI(t, "", "vector", "list")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, id+"\n", out)
	_, err = os.Stat(filepath.Join(dir, "vectors", id[len(id)-2:], id+".cbor"))
	assert.NoError(t, err)
}

func TestVectorListNeedsListableStore(t *testing.T) {
	withBackend(t, "ipfs", "")
	code, _, errOut := runCLI(t, "", "vector", "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "cannot list")
}

func TestVectorVerifyDetectsTampering(t *testing.T) {
	dir := withConfig(t, "")
	vecPath := filepath.Join(dir, "v.cbor")
	code, _, _ := runCLI(t, "", "vector", "make", "--out", vecPath, "atlas-echo")
	require.Equal(t, 0, code)

	v, err := readVector(vecPath)
	require.NoError(t, err)
	v.Output = strings.Repeat("a", len(v.Output))
	require.NoError(t, writeVector(v, vecPath, nil))

	code, _, errOut := runCLI(t, "", "vector", "verify", vecPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "output mismatch")
}

func TestVectorManifest(t *testing.T) {
	dir := withBackend(t, "badger", "")
	manifest := filepath.Join(dir, "vectors.jsonc")
	require.NoError(t, os.WriteFile(manifest, []byte(`{
  // two sample keys
  "vectors": [
    {"input": "midnight-signal", "algorithm": "SHA-512"},
    {"input": "harbor-lane-7", "algorithm": "SHA-1", "rounds": 3, "length": 100},
  ],
}`), 0o600))

	code, out, errOut := runCLI(t, "", "vector", "make", "--manifest", manifest)
	require.Equal(t, 0, code, errOut)
	ids := strings.Fields(out)
	require.Len(t, ids, 2)

	code, out, _ = runCLI(t, "", "vector", "get", "--json", ids[0])
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"input": "midnight-signal"`)
}

func TestKeyCommandsAndSigning(t *testing.T) {
	dir := withConfig(t, "")

	code, out, errOut := runCLI(t, "", "key", "init", "--name", "ci", "--seed-hex", testSeedHex)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Created signer: ed25519:")

	code, _, _ = runCLI(t, "", "key", "derive", "--from", "ci", "--purpose", "release")
	require.Equal(t, 0, code)

	code, out, _ = runCLI(t, "", "key", "list")
	require.Equal(t, 0, code)
	assert.Equal(t, "ci\n", out)

	code, out, _ = runCLI(t, "", "key", "pub", "--name", "ci", "--purpose", "release", "--alg", "dilithium3")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "dilithium3:"))

	vecPath := filepath.Join(dir, "v.cbor")
	code, _, _ = runCLI(t, "", "vector", "make", "--out", vecPath, "waveform-11")
	require.Equal(t, 0, code)
	signed := filepath.Join(dir, "signed.cbor")
	code, _, errOut = runCLI(t, "", "vector", "sign", vecPath, "--signer", "ci", "--purpose", "release", "--alg", "dilithium3", "--out", signed)
	require.Equal(t, 0, code, errOut)
	code, out, _ = runCLI(t, "", "vector", "verify-sig", signed)
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(out, "ok dilithium3 "))

	code, _, errOut = runCLI(t, "", "vector", "sign", vecPath)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no signer provided")

	code, _, _ = runCLI(t, "", "key", "init", "--name", "../x")
	assert.Equal(t, 2, code)
}

func TestRemoteDeriveAndStore(t *testing.T) {
	withConfig(t, "")

	cas, err := localfs.New(t.TempDir())
	require.NoError(t, err)
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	rpc.Register(srv, &rpc.Server{Deriver: derive.New(derive.Config{}), Store: cas})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)
	target := lis.Addr().String()

	code, out, errOut := runCLI(t, "", "derive", "--grpc-target", target, "-a", "SHA-256", "--aug", "trim", "midnight-signal")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, midnightSHA256+"\n", out)

	code, _, errOut = runCLI(t, "", "derive", "--grpc-target", target, "  ")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "KF-INPUT-001")

	code, out, _ = runCLI(t, "", "catalog", "--grpc-target", target)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "SHA-1\t20 bytes")

	vecPath := filepath.Join(t.TempDir(), "v.cbor")
	code, _, _ = runCLI(t, "", "vector", "make", "--out", vecPath, "copper-lantern")
	require.Equal(t, 0, code)
	code, out, _ = runCLI(t, "", "vector", "put", "--grpc-target", target, vecPath)
	require.Equal(t, 0, code)
	id := strings.TrimSpace(out)
	code, out, _ = runCLI(t, "", "vector", "get", "--json", "--grpc-target", target, id)
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"input": "copper-lantern"`)
}

func TestVectorPutWritesMirrors(t *testing.T) {
	mirror := filepath.Join(t.TempDir(), "mirror")
	dir := withConfig(t, "")
	// Rewrite the config with a badger mirror next to the localfs primary.
	path := filepath.Join(dir, "keyforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: localfs\n  dir: "+filepath.Join(dir, "vectors")+
		"\n  mirrors:\n    - backend: badger\n      dir: "+mirror+"\n"), 0o600))

	vecPath := filepath.Join(dir, "v.cbor")
	code, _, _ := runCLI(t, "", "vector", "make", "--out", vecPath, "atlas-echo")
	require.Equal(t, 0, code)
	code, out, errOut := runCLI(t, "", "vector", "put", vecPath)
	require.Equal(t, 0, code, errOut)
	id := strings.TrimSpace(out)

	mirrorOnly := filepath.Join(dir, "mirror.yaml")
	require.NoError(t, os.WriteFile(mirrorOnly, []byte("store:\n  backend: badger\n  dir: "+mirror+"\n"), 0o600))
	code, out, errOut = runCLI(t, "", "vector", "get", "--json", "--config", mirrorOnly, id)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `"input": "atlas-echo"`)
}

func TestVectorExportImport(t *testing.T) {
	dir := withConfig(t, "")
	vecPath := filepath.Join(dir, "v.cbor")
	code, _, _ := runCLI(t, "", "vector", "make", "--out", vecPath, "harbor-lane-7")
	require.Equal(t, 0, code)
	code, out, _ := runCLI(t, "", "vector", "put", vecPath)
	require.Equal(t, 0, code)
	id := strings.TrimSpace(out)

	pack := filepath.Join(dir, "pack.tar")
	code, _, errOut := runCLI(t, "", "vector", "export", "--out", pack, id)
	require.Equal(t, 0, code, errOut)

	// A fresh config, and so a fresh empty store.
	withConfig(t, "")
	code, _, _ = runCLI(t, "", "vector", "get", id)
	assert.Equal(t, 1, code)

	code, _, errOut = runCLI(t, "", "vector", "import", "--require-signature", pack)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not signed")

	code, out, errOut = runCLI(t, "", "vector", "import", "--verify", pack)
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, id+"\n", out)
	code, _, _ = runCLI(t, "", "vector", "get", id)
	assert.Equal(t, 0, code)

	code, _, _ = runCLI(t, "", "vector", "export")
	assert.Equal(t, 2, code)
}
