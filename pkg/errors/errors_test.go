package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeAlignmentFailed, "aligner produced no result")
	require.NotNil(t, err)
	assert.Equal(t, CodeAlignmentFailed, err.Code)
	assert.Equal(t, "[ALN_001] aligner produced no result", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestNewf(t *testing.T) {
	err := Newf(CodeIncompleteAlignment, "missing descriptor %s", "InChIKey")
	assert.Equal(t, "[ALN_004] missing descriptor InChIKey", err.Error())
}

func TestWithDetail(t *testing.T) {
	base := New(CodeModelWriteFailed, "persist model record")
	detailed := base.WithDetail("model=M_ATP_00001")
	assert.Equal(t, "[MDL_002] persist model record: model=M_ATP_00001", detailed.Error())
	// The receiver is not mutated.
	assert.Empty(t, base.Detail)

	var nilErr *AppError
	assert.Nil(t, nilErr.WithDetail("x"))
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CodeStorageError, "write model index")
	require.NotNil(t, err)
	assert.Equal(t, CodeStorageError, err.Code)
	assert.ErrorIs(t, err, cause)

	assert.Nil(t, Wrap(nil, CodeStorageError, "no-op"))
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(CodeUnmappedHeavyAtom, "non-hydrogen unmapped atom")
	outer := Wrap(inner, CodeUnknown, "evaluate candidate")
	assert.Equal(t, CodeUnmappedHeavyAtom, outer.Code)
}

func TestIsCode(t *testing.T) {
	inner := New(CodeAlignmentTimeout, "alignment exceeded deadline")
	wrapped := fmt.Errorf("candidate 1010101: %w", inner)
	assert.True(t, IsCode(wrapped, CodeAlignmentTimeout))
	assert.False(t, IsCode(wrapped, CodeAlignmentFailed))
	assert.False(t, IsCode(nil, CodeAlignmentTimeout))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, CodeOK, GetCode(nil))
	assert.Equal(t, CodeUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, CodeDBError, GetCode(New(CodeDBError, "query failed")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(CodeConfigInvalid, "model dir unresolved")))
	assert.True(t, IsFatal(New(CodePathUnusable, "cache path not writable")))
	assert.False(t, IsFatal(New(CodeAlignmentFailed, "per-candidate")))
	assert.False(t, IsFatal(nil))
}

func TestConvenienceFactories(t *testing.T) {
	assert.Equal(t, CodeNotFound, NotFound("no prior audit").Code)
	assert.Equal(t, CodeInvalid, Invalid("empty parent id").Code)
	assert.Equal(t, CodeInternal, Internal("unexpected").Code)
}
