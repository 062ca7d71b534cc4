package vector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
)

// Manifest lists the requests a vector set is generated from. On disk it
// is JSON with comments and trailing commas allowed:
//
//	{
//	  // sample keys, original rendering
//	  "vectors": [
//	    {"input": "midnight-signal", "algorithm": "SHA-512"},
//	    {"input": "Hello World", "algorithm": "SHA-384", "rounds": 2,
//	     "augmentations": ["kebab"], "length": 10},
//	  ],
//	}
type Manifest struct {
	Vectors []Entry `json:"vectors"`
}

// Entry is one manifest request. Rounds defaults to 1 and Length to
// derive.DefaultLength when omitted.
type Entry struct {
	Input         string   `json:"input"`
	Algorithm     string   `json:"algorithm"`
	Rounds        int      `json:"rounds,omitempty"`
	Augmentations []string `json:"augmentations,omitempty"`
	Length        int      `json:"length,omitempty"`
}

// ParseManifest strips comments and trailing commas from data and
// decodes the result. Unknown keys are rejected.
func ParseManifest(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	for i, e := range m.Vectors {
		if strings.TrimSpace(e.Algorithm) == "" {
			return nil, fmt.Errorf("parsing manifest: vectors[%d]: algorithm is required", i)
		}
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Requests resolves every entry against c, in manifest order.
func (m *Manifest) Requests(c augment.Catalog) ([]derive.Request, error) {
	out := make([]derive.Request, 0, len(m.Vectors))
	for i, e := range m.Vectors {
		sel, err := augment.ParseSelection(c, e.Augmentations)
		if err != nil {
			return nil, fmt.Errorf("vectors[%d]: %w", i, err)
		}
		rounds := e.Rounds
		if rounds == 0 {
			rounds = 1
		}
		out = append(out, derive.Request{
			Input:   e.Input,
			Hash:    digest.Spec{Algorithm: digest.ID(e.Algorithm), Rounds: rounds},
			Augment: sel,
			Length:  e.Length,
		})
	}
	return out, nil
}
