package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := New(ErrOrderNotFound, "order %s not found", "o-1")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.NotErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, "order o-1 not found", err.Error())

	wrapped := fmt.Errorf("handler: %w", err)
	assert.ErrorIs(t, wrapped, ErrOrderNotFound)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, CodeOrderNotFound, CodeOf(wrapped))
}

func TestInsufficientStockDetails(t *testing.T) {
	err := InsufficientStock(Shortage{ItemName: "Apple", ProductID: "A", Warehouse: "W1", Available: 2, Needed: 3})
	assert.Equal(t, "insufficient stock for Apple in warehouse 'W1'. Available: 2, Needed: 3", err.Error())
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var ae *Error
	require.True(t, errors.As(fmt.Errorf("approve: %w", err), &ae))
	assert.Equal(t, KindConflict, ae.Kind)
	assert.Equal(t, 2, ae.Shortage.Available)
	assert.Equal(t, 3, ae.Shortage.Needed)
}

func TestInternalWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "save order %s", "o-1")
	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save order o-1: connection refused", err.Error())
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, KindInternal, KindOf(ErrMissingEnterpriseLink))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
