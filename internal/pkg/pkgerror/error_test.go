package pkgerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	require.Equal(t, "MISSING_INPUT", KindMissingInput.String())
	require.Equal(t, "SCHEMA_MISMATCH", KindSchemaMismatch.String())
	require.Equal(t, "REMOTE", KindRemote.String())
	require.Equal(t, "INTERNAL", Kind(99).String())
}

func TestNewNil(t *testing.T) {
	require.NoError(t, New(KindRemote, nil))
	require.NoError(t, WithSource(nil, "x"))
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := NewSchemaMismatch(errors.New("column fare: bad value"))
	wrapped := fmt.Errorf("convert yellow: %w", base)

	require.Equal(t, KindSchemaMismatch, KindOf(wrapped))
	require.True(t, Is(wrapped, KindSchemaMismatch))
	require.False(t, Is(wrapped, KindRemote))
	require.Equal(t, KindInternal, KindOf(errors.New("plain")))
	require.False(t, Is(nil, KindInternal))
}

func TestMissingInput(t *testing.T) {
	err := NewMissingInput("Green Taxi", "/data/raw/green.csv")

	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, KindMissingInput, KindOf(err))
	require.Equal(t, "Green Taxi: input not found: /data/raw/green.csv", err.Error())

	var e *Error
	require.True(t, errors.As(err, &e))
	require.Equal(t, "Green Taxi", e.Source())
}

func TestWithSourceKeepsKind(t *testing.T) {
	err := WithSource(NewRemote(errors.New("quota exceeded")), "Taxi Zone")

	require.Equal(t, KindRemote, KindOf(err))
	require.Contains(t, err.Error(), "Taxi Zone: quota exceeded")
	require.Contains(t, err.(*Error).String(), "Kind: REMOTE")
}
