package lg

import (
	"context"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := RegisterFlags(fs, "prefshell")
	require.NoError(t, fs.Parse([]string{"-debug", "-log-format", "json"}))

	assert.Equal(t, "prefshell", cfg.ServiceName)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "json", cfg.Format)
}

func TestNewBuildsZapLogger(t *testing.T) {
	logger := New(&Config{ServiceName: "test", Format: "json"})
	_, ok := logger.(*zapLogger)
	assert.True(t, ok, "expected zap-backed logger, got %T", logger)

	child := logger.With(String("component", "store"))
	assert.NotNil(t, child)
}

func TestFlatten(t *testing.T) {
	assert.Equal(t, "", flatten())
	out := flatten(String("user", "alice"), Int("attempts", 3))
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "3")
}

func TestContextRoundTrip(t *testing.T) {
	ctx := Attach(context.Background(), Discard)
	assert.Equal(t, Discard, FromContext(ctx))

	_, isDefault := FromContext(context.Background()).(defaultLogger)
	assert.True(t, isDefault)
}
