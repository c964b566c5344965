package errorbank

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestKindMappings(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("bad"), http.StatusBadRequest, codes.InvalidArgument},
		{Conflict("busy"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("missing"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("nope"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Internal("boom"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode())
		assert.Equal(t, tc.code, tc.err.GRPCCode())
	}
}

func TestCodeFallsBackToKind(t *testing.T) {
	err := Conflict("order was modified concurrently")
	assert.Equal(t, "conflict", err.Code())

	coded := Conflict("order was modified concurrently", WithCode("concurrent_modification"))
	assert.Equal(t, "concurrent_modification", coded.Code())
}

func TestFromUnwrapsAppErrors(t *testing.T) {
	original := NotFound("order not found", WithDetail("id", 7))
	wrapped := From(original)
	assert.Same(t, original, wrapped)

	plain := errors.New("disk full")
	converted := From(plain)
	require.NotNil(t, converted)
	assert.Equal(t, KindInternal, converted.Kind())
	assert.ErrorIs(t, converted, plain)
}

func TestDetailsAccumulate(t *testing.T) {
	err := BadRequest("invalid",
		WithDetail("field", "phone"),
		WithDetails(map[string]any{"reason": "empty"}),
	)
	assert.Equal(t, "phone", err.Details()["field"])
	assert.Equal(t, "empty", err.Details()["reason"])
}
