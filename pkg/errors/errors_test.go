package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, MetadataFor(CodeValidation).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeStateConflict).HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, MetadataFor(CodeDependency).HTTPStatus)
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("NOPE"))
	assert.Equal(t, http.StatusInternalServerError, meta.HTTPStatus)
}

func TestErrorCarriesReason(t *testing.T) {
	t.Parallel()

	err := New(CodeValidation, "promo already used").WithReason(ReasonPromoAlreadyUsed)
	assert.Equal(t, ReasonPromoAlreadyUsed, err.Reason())
	assert.Contains(t, err.Error(), "PROMO_ALREADY_USED")
	assert.True(t, HasReason(err, ReasonPromoAlreadyUsed))
	assert.False(t, HasReason(err, ReasonEmptyCart))
}

func TestHasReasonThroughWrapping(t *testing.T) {
	t.Parallel()

	inner := New(CodeStateConflict, "cannot cancel").WithReason(ReasonInvalidTransition)
	wrapped := fmt.Errorf("handling request: %w", inner)
	assert.True(t, HasReason(wrapped, ReasonInvalidTransition))
}

func TestAsUnwrapsTypedError(t *testing.T) {
	t.Parallel()

	base := New(CodeNotFound, "order not found")
	wrapped := fmt.Errorf("outer: %w", base)

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeNotFound, typed.Code())
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("connection refused")
	err := Wrap(CodeDependency, cause, "load cart")

	dump := Dump(err)
	assert.Equal(t, CodeDependency, dump.Code)
	assert.Len(t, dump.Chain, 2)
	assert.Contains(t, dump.TopMessage, "load cart")
}
