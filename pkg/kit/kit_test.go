package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var trace []string
	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				trace = append(trace, name)
				return next(ctx, req)
			}
		}
	}
	ep := Chain(mw("a"), mw("b"), mw("c"))(func(context.Context, any) (any, error) {
		trace = append(trace, "endpoint")
		return nil, nil
	})
	if _, err := ep(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(trace, ","); got != "a,b,c,endpoint" {
		t.Errorf("order = %q, want a,b,c,endpoint", got)
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("GetTransport = %q, want http", got)
	}
	ctx = WithRequestID(WithTransport(ctx, "mcp"), "r1")
	if GetTransport(ctx) != "mcp" || GetRequestID(ctx) != "r1" {
		t.Errorf("transport %q request %q", GetTransport(ctx), GetRequestID(ctx))
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	boom := errors.New("boom")

	ep := Logging(logger, "query_voters")(func(context.Context, any) (any, error) {
		return nil, boom
	})
	ctx := WithOperator(WithRequestID(context.Background(), "req-7"), "asha")
	if _, err := ep(ctx, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	out := buf.String()
	for _, want := range []string{"level=WARN", "endpoint=query_voters", "request_id=req-7", "operator=asha", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}
