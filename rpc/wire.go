package rpc

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/keyforge/alphabet"
	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
)

// Request and response field names of the Derivation service.
const (
	fieldInput         = "input"
	fieldAlgorithm     = "algorithm"
	fieldRounds        = "rounds"
	fieldAugmentations = "augmentations"
	fieldLength        = "length"

	fieldOK      = "ok"
	fieldEncoded = "encoded"
	fieldReason  = "reason"
	fieldRuleID  = "rule_id"
	fieldMessage = "message"

	fieldAlphabet   = "alphabet"
	fieldAlgorithms = "algorithms"
	fieldID         = "id"
	fieldSize       = "size"
)

// errMalformed marks request structs that cannot be read at all. The
// server reports it as codes.InvalidArgument rather than in-band.
var errMalformed = errors.New("rpc: malformed request")

// wireRequest is a decoded Derive request before defaults are applied.
type wireRequest struct {
	input     string
	algorithm string
	rounds    int
	augs      []string
	hasAugs   bool
	length    int
}

func decodeRequest(in *structpb.Struct) (wireRequest, error) {
	var r wireRequest
	for k, v := range in.GetFields() {
		var err error
		switch k {
		case fieldInput:
			r.input, err = stringField(k, v)
		case fieldAlgorithm:
			r.algorithm, err = stringField(k, v)
		case fieldRounds:
			r.rounds, err = intField(k, v)
		case fieldLength:
			r.length, err = intField(k, v)
		case fieldAugmentations:
			r.augs, err = stringList(k, v)
			r.hasAugs = true
		default:
			err = fmt.Errorf("%w: unknown field %q", errMalformed, k)
		}
		if err != nil {
			return wireRequest{}, err
		}
	}
	return r, nil
}

func stringField(name string, v *structpb.Value) (string, error) {
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errMalformed, name)
	}
	return s.StringValue, nil
}

func intField(name string, v *structpb.Value) (int, error) {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", errMalformed, name)
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %s must be an integer", errMalformed, name)
	}
	return int(f), nil
}

func stringList(name string, v *structpb.Value) ([]string, error) {
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", errMalformed, name)
	}
	out := make([]string, 0, len(l.ListValue.GetValues()))
	for _, item := range l.ListValue.GetValues() {
		s, err := stringField(name, item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// encodeRequest is the client side of decodeRequest. A disabled selection
// is sent as an empty list so the server does not apply its default.
func encodeRequest(req derive.Request) (*structpb.Struct, error) {
	augs := make([]any, 0)
	for _, id := range req.Augment.IDs() {
		augs = append(augs, id)
	}
	fields := map[string]any{
		fieldInput:         req.Input,
		fieldAugmentations: augs,
	}
	if req.Hash.Algorithm != "" {
		fields[fieldAlgorithm] = string(req.Hash.Algorithm)
	}
	if req.Hash.Rounds != 0 {
		fields[fieldRounds] = req.Hash.Rounds
	}
	if req.Length != 0 {
		fields[fieldLength] = req.Length
	}
	return structpb.NewStruct(fields)
}

func okResponse(encoded string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldOK:      structpb.NewBoolValue(true),
		fieldEncoded: structpb.NewStringValue(encoded),
	}}
}

func failureResponse(e *derive.Error) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldOK:      structpb.NewBoolValue(false),
		fieldReason:  structpb.NewStringValue(string(e.Kind)),
		fieldRuleID:  structpb.NewStringValue(e.RuleID),
		fieldMessage: structpb.NewStringValue(e.Error()),
	}}
}

// decodeResponse turns a Derive reply into the encoded string or the
// *derive.Error it carries.
func decodeResponse(out *structpb.Struct) (string, error) {
	f := out.GetFields()
	if f[fieldOK].GetBoolValue() {
		return f[fieldEncoded].GetStringValue(), nil
	}
	kind, ok := derive.ParseKind(f[fieldReason].GetStringValue())
	if !ok {
		return "", fmt.Errorf("rpc: unknown failure reason %q", f[fieldReason].GetStringValue())
	}
	return "", &derive.Error{
		Kind:    kind,
		RuleID:  f[fieldRuleID].GetStringValue(),
		Message: f[fieldMessage].GetStringValue(),
	}
}

// CatalogInfo describes what a server can derive with.
type CatalogInfo struct {
	Alphabet      string
	Algorithms    []AlgorithmInfo
	Augmentations []string
}

// AlgorithmInfo is one digest algorithm a server offers.
type AlgorithmInfo struct {
	ID   digest.ID
	Size int
}

func encodeCatalog(digests digest.Catalog, augs augment.Catalog) (*structpb.Struct, error) {
	algs := make([]any, 0, digests.Len())
	for _, a := range digests.Algorithms() {
		algs = append(algs, map[string]any{fieldID: string(a.ID), fieldSize: a.Size})
	}
	ids := make([]any, 0, augs.Len())
	for _, id := range augs.IDs() {
		ids = append(ids, id)
	}
	return structpb.NewStruct(map[string]any{
		fieldAlphabet:      alphabet.Symbols,
		fieldAlgorithms:    algs,
		fieldAugmentations: ids,
	})
}

func decodeCatalog(out *structpb.Struct) CatalogInfo {
	f := out.GetFields()
	info := CatalogInfo{Alphabet: f[fieldAlphabet].GetStringValue()}
	for _, v := range f[fieldAlgorithms].GetListValue().GetValues() {
		a := v.GetStructValue().GetFields()
		info.Algorithms = append(info.Algorithms, AlgorithmInfo{
			ID:   digest.ID(a[fieldID].GetStringValue()),
			Size: int(a[fieldSize].GetNumberValue()),
		})
	}
	for _, v := range f[fieldAugmentations].GetListValue().GetValues() {
		info.Augmentations = append(info.Augmentations, v.GetStringValue())
	}
	return info
}
