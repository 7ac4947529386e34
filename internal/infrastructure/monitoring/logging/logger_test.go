package logging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xtalforge/ccmodel/internal/config"
	apperrors "github.com/xtalforge/ccmodel/pkg/errors"
)

func TestFieldConstructors(t *testing.T) {
	assert.Equal(t, Field{Key: "parent", Value: "ATP"}, String("parent", "ATP"))
	assert.Equal(t, Field{Key: "n", Value: 7}, Int("n", 7))
	assert.Equal(t, Field{Key: "r", Value: 0.042}, Float64("r", 0.042))
	assert.Equal(t, Field{Key: "ok", Value: true}, Bool("ok", true))
	assert.Equal(t, Field{Key: "took", Value: time.Second}, Duration("took", time.Second))
}

func TestErrField(t *testing.T) {
	assert.Equal(t, Field{Key: "error", Value: "<nil>"}, Err(nil))
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
}

func TestCodeField(t *testing.T) {
	err := apperrors.New(apperrors.CodeAlignmentTimeout, "deadline exceeded")
	assert.Equal(t, Field{Key: "code", Value: "ALN_002"}, Code(err))
	assert.Equal(t, Field{Key: "code", Value: "OK"}, Code(nil))
}

func TestNew_ValidConfig(t *testing.T) {
	l, err := New(config.LogConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewFromCore_EmitsStructuredEntries(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core)

	l.Info("model written",
		String("model_id", "M_ATP_00001"),
		Int("atoms", 31),
	)

	entries := observed.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "model written", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "M_ATP_00001", fields["model_id"])
	assert.EqualValues(t, 31, fields["atoms"])
}

func TestWith_DoesNotMutateParent(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	parent := NewFromCore(core)
	child := parent.With(String("parent_id", "GLC"))

	parent.Info("parent entry")
	child.Info("child entry")

	entries := observed.All()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].ContextMap(), "parent_id")
	assert.Equal(t, "GLC", entries[1].ContextMap()["parent_id"])
}

func TestNamed(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core).Named("build").Named("pool")

	l.Info("started")
	require.Len(t, observed.All(), 1)
	assert.Equal(t, "build.pool", observed.All()[0].LoggerName)
}

func TestNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Info("discarded")
		l.With(String("k", "v")).Named("x").Error("also discarded")
	})
}

func TestDefault(t *testing.T) {
	orig := Default()
	t.Cleanup(func() { SetDefault(orig) })

	core, observed := observer.New(zapcore.DebugLevel)
	SetDefault(NewFromCore(core))
	Default().Info("via default")
	assert.Len(t, observed.All(), 1)

	// nil is ignored
	SetDefault(nil)
	assert.NotNil(t, Default())
}
