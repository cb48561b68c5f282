package vsearch

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilLoggerMethodsAreNoops(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.LogBuild(context.Background(), "ivfflat", 100, 0.5, nil)
		l.LogQuery(context.Background(), "vamana", 10, 5, 0.01, nil)
		l.LogPartition(context.Background(), 8, 120, nil)
		l.LogGraphBuild(context.Background(), 3, 50, 16)
		l.WithDimension(128).LogBuild(context.Background(), "ivfflat", 1, 0, nil)
	})
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	noop := NoopLogger()
	assert.False(t, noop.Enabled(context.Background(), slog.LevelError))
}

var assertError = &testErr{}

type testErr struct{}

func (*testErr) Error() string { return "boom" }

func TestTextLoggerReportsBuildFailure(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Logger: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	l.LogBuild(context.Background(), "vamana", 0, 0, assertError)
	out := buf.String()
	assert.True(t, strings.Contains(out, "build failed"))
	assert.True(t, strings.Contains(out, "vamana"))
}
