package vector

// SampleKeys are the published demonstration keys. They appear in docs and
// golden vectors and must never be used as real secrets.
var SampleKeys = []string{
	"midnight-signal",
	"copper-lantern",
	"waveform-11",
	"atlas-echo",
	"harbor-lane-7",
}
