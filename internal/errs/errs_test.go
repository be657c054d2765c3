package errs

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := New(KindInsufficientAvailability, "requested 5, only 2 available")
	wrapped := errors.Wrap(base, "approving request 42")

	require.Equal(t, KindInsufficientAvailability, KindOf(wrapped))
	require.True(t, IsKind(wrapped, KindInsufficientAvailability))
	require.False(t, IsKind(wrapped, KindNotFound))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:               http.StatusBadRequest,
		KindNotFound:                 http.StatusNotFound,
		KindInvalidState:             http.StatusConflict,
		KindConflict:                 http.StatusConflict,
		KindAlreadyReturned:          http.StatusConflict,
		KindInsufficientAvailability: http.StatusUnprocessableEntity,
		KindForbidden:                http.StatusForbidden,
		KindInternal:                 http.StatusInternalServerError,
	}

	for kind, want := range cases {
		require.Equal(t, want, HTTPStatus(New(kind, "x")), "kind %s", kind)
	}
}
