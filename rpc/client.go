package rpc

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/keyforge/cidutil"
	"xdao.co/keyforge/derive"
	"xdao.co/keyforge/storage"
)

// Client talks to a keyforged server. It implements storage.CAS over the
// VectorStore service.
type Client struct {
	closer func() error
	derive derivationClient
	store  vectorStoreClient

	// Timeout applies per store RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the dial options, e.g. a context dialer in tests.
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c := NewClient(cc)
	c.closer = cc.Close
	return c, nil
}

// NewClient wraps an existing connection. Close does not close cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{derive: derivationClient{cc: cc}, store: vectorStoreClient{cc: cc}}
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}

// Derive runs req on the server. Derivation failures come back as
// *derive.Error, exactly as a local Deriver would return them.
func (c *Client) Derive(ctx context.Context, req derive.Request) (string, error) {
	in, err := encodeRequest(req)
	if err != nil {
		return "", err
	}
	out, err := c.derive.Derive(ctx, in)
	if err != nil {
		return "", err
	}
	return decodeResponse(out)
}

// Catalog reports the server's alphabet, algorithms and augmentations.
func (c *Client) Catalog(ctx context.Context) (CatalogInfo, error) {
	out, err := c.derive.Catalog(ctx, &emptypb.Empty{})
	if err != nil {
		return CatalogInfo{}, err
	}
	return decodeCatalog(out), nil
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	expected, err := cidutil.Of(data)
	if err != nil {
		return cid.Undef, err
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.store.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return cid.Undef, storageFromStatus(err)
	}
	id, err := cidutil.Decode(reply.GetValue())
	if err != nil {
		return cid.Undef, storage.ErrInvalidCID
	}
	if !id.Equals(expected) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.store.Get(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return nil, storageFromStatus(err)
	}
	b := reply.GetValue()
	if err := cidutil.Check(id, b); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *Client) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.store.Has(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}

func storageFromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.InvalidArgument:
		if st.Message() == storage.ErrInvalidCID.Error() {
			return storage.ErrInvalidCID
		}
		return err
	case codes.DataLoss:
		return storage.ErrCIDMismatch
	case codes.AlreadyExists:
		return storage.ErrImmutable
	default:
		return err
	}
}
