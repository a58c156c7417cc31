package analysis

import (
	"context"
	"io"
	"log/slog"
)

// stubGateway returns a fixed result and counts invocations.
type stubGateway struct {
	result any
	calls  int
}

func (g *stubGateway) Invoke(_ context.Context, _, _, _ string) any {
	g.calls++
	return g.result
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
