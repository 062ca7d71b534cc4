// Package rpc exposes derivation and the vector store over gRPC.
//
// Derivation failures travel in-band as {ok: false, reason, rule_id,
// message}; gRPC status codes are reserved for requests the server cannot
// read and for store errors.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/keyforge/augment"
	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/digest"
	"xdao.co/keyforge/storage"
	"xdao.co/keyforge/vector"
)

// Defaults fill in what a Derive request leaves out.
type Defaults struct {
	Hash    digest.Spec
	Augment augment.Selection
	Length  int
}

// Server serves the Derivation service, and the VectorStore service when
// Store is set.
type Server struct {
	UnimplementedVectorStoreServer

	Deriver  *derive.Deriver
	Defaults Defaults
	// MaxLength bounds the requested output length when non-zero.
	MaxLength int
	// MaxRounds bounds the requested hash rounds when non-zero.
	MaxRounds int
	Store     storage.CAS
}

// Register registers every service s can serve on r.
func Register(r grpc.ServiceRegistrar, s *Server) {
	RegisterDerivationServer(r, s)
	if s.Store != nil {
		RegisterVectorStoreServer(r, s)
	}
}

func (s *Server) Derive(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.Deriver == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing deriver")
	}
	wr, err := decodeRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	req, err := s.request(wr)
	if err == nil {
		if s.MaxLength > 0 && req.Length > s.MaxLength {
			return nil, status.Errorf(codes.InvalidArgument, "length %d exceeds server limit %d", req.Length, s.MaxLength)
		}
		if s.MaxRounds > 0 && req.Hash.Rounds > s.MaxRounds {
			return nil, status.Errorf(codes.InvalidArgument, "rounds %d exceeds server limit %d", req.Hash.Rounds, s.MaxRounds)
		}
		var res derive.Result
		res, err = s.Deriver.Derive(ctx, req)
		if err == nil {
			return okResponse(res.Encoded), nil
		}
	}
	var de *derive.Error
	if errors.As(err, &de) {
		return failureResponse(de), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, status.FromContextError(ctxErr).Err()
	}
	return nil, status.Error(codes.Internal, err.Error())
}

func (s *Server) request(wr wireRequest) (derive.Request, error) {
	req := derive.Request{
		Input:   wr.input,
		Hash:    s.Defaults.Hash,
		Augment: s.Defaults.Augment,
		Length:  s.Defaults.Length,
	}
	if wr.algorithm != "" {
		req.Hash.Algorithm = digest.ID(wr.algorithm)
	}
	if wr.rounds != 0 {
		req.Hash.Rounds = wr.rounds
	}
	if req.Hash.Rounds == 0 {
		req.Hash.Rounds = 1
	}
	if wr.length != 0 {
		req.Length = wr.length
	}
	if wr.hasAugs {
		sel, err := s.Deriver.Selection(wr.augs)
		if err != nil {
			return derive.Request{}, err
		}
		req.Augment = sel
	}
	return req, nil
}

func (s *Server) Catalog(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s == nil || s.Deriver == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing deriver")
	}
	out, err := encodeCatalog(s.Deriver.Digests(), s.Deriver.Augmentations())
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// Put accepts only canonical vector encodings.
func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	b := in.GetValue()
	if _, err := vector.Decode(b); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := s.Store.Put(b)
	if err != nil {
		return nil, statusFromStorage(err)
	}
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := cidutil.Decode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	b, err := s.Store.Get(id)
	if err != nil {
		return nil, statusFromStorage(err)
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	id, err := cidutil.Decode(in.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}

// LoggingInterceptor logs every unary call with a fresh request id. Inputs
// and outputs are never logged.
func LoggingInterceptor(log *logrus.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := log.WithFields(logrus.Fields{
			"request_id": uuid.NewString(),
			"method":     info.FullMethod,
			"duration":   time.Since(start).String(),
			"code":       status.Code(err).String(),
		})
		if out, ok := resp.(*structpb.Struct); ok && info.FullMethod == methodDerive {
			if f := out.GetFields(); f != nil && !f[fieldOK].GetBoolValue() {
				entry = entry.WithField("reason", f[fieldReason].GetStringValue())
			}
		}
		if err != nil {
			entry.WithError(err).Warn("RPC failed")
		} else {
			entry.Debug("RPC served")
		}
		return resp, err
	}
}

func statusFromStorage(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidCID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrCIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	case errors.Is(err, storage.ErrImmutable):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("store: %v", err))
	}
}
