package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Transport delivers one attempt and decodes the service response.
type Transport interface {
	Evaluate(ctx context.Context, a Attempt) (Response, error)
}

// HTTPTransport posts attempts as JSON to the exercise's evaluate route.
type HTTPTransport struct {
	Client *backend.Client
}

// Evaluate implements Transport.
func (t HTTPTransport) Evaluate(ctx context.Context, a Attempt) (Response, error) {
	var resp Response
	header := http.Header{"Idempotency-Key": []string{a.ID}}
	if err := t.Client.DoWithHeader(ctx, http.MethodPost, a.Path, header, a.Body, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// EvaluateMethod is the unary RPC carrying structpb requests and responses.
const EvaluateMethod = "/recite.scoring.v1.ScoringService/Evaluate"

// GRPCTransport sends attempts as structpb.Struct over a unary RPC.
type GRPCTransport struct {
	Endpoint    string
	DialTimeout time.Duration

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGRPCTransport constructs a lazily connected transport.
func NewGRPCTransport(endpoint string, dialTimeout time.Duration) *GRPCTransport {
	return &GRPCTransport{Endpoint: endpoint, DialTimeout: dialTimeout}
}

// Evaluate implements Transport.
func (t *GRPCTransport) Evaluate(ctx context.Context, a Attempt) (Response, error) {
	conn, err := t.connect(ctx)
	if err != nil {
		return Response{}, err
	}

	fields := make(map[string]any, len(a.Body)+1)
	for k, v := range a.Body {
		fields[k] = v
	}
	fields["endpoint"] = a.Path
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return Response{}, fmt.Errorf("build scoring request: %w", err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, "idempotency-key", a.ID)
	out := &structpb.Struct{}
	if err := conn.Invoke(ctx, EvaluateMethod, in, out); err != nil {
		return Response{}, err
	}

	raw, err := protojson.Marshal(out)
	if err != nil {
		return Response{}, &backend.DecodeError{Path: EvaluateMethod, Err: err}
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, &backend.DecodeError{Path: EvaluateMethod, Err: err}
	}
	return resp, nil
}

// Close releases the connection.
func (t *GRPCTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *GRPCTransport) connect(ctx context.Context) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil && t.conn.GetState() != connectivity.Shutdown {
		return t.conn, nil
	}

	endpoint := strings.TrimSpace(t.Endpoint)
	if endpoint == "" {
		return nil, errors.New("scoring grpc endpoint is empty")
	}
	dialTimeout := t.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial scoring grpc %q: %w", endpoint, err)
	}
	readyCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn.Connect()
	if err := WaitForReady(readyCtx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("wait for scoring grpc readiness: %w", err)
	}
	t.conn = conn
	return conn, nil
}

// WaitForReady blocks until the connection enters Ready or fails.
func WaitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	for {
		state := conn.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errors.New("grpc connection entered shutdown state")
		}

		if !conn.WaitForStateChange(ctx, state) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("grpc readiness wait timed out in state %s", state.String())
		}
	}
}
