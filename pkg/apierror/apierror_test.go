package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		KindCredentials:  http.StatusUnauthorized,
		KindTokenExpired: http.StatusUnauthorized,
		KindFormat:       http.StatusBadRequest,
		KindTokenInvalid: http.StatusBadRequest,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindUnknown:      http.StatusInternalServerError,
	}

	for kind, status := range cases {
		require.Equal(t, status, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfWrappedError(t *testing.T) {
	t.Parallel()

	base := Conflict("user with this username or email already exists", errors.New("duplicate"))
	wrapped := fmt.Errorf("register: %w", base)

	require.Equal(t, KindConflict, KindOf(wrapped))
	require.True(t, IsKind(wrapped, KindConflict))
	require.False(t, IsKind(nil, KindConflict))
	require.Equal(t, KindUnknown, KindOf(errors.New("boom")))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	t.Parallel()

	err := TokenInvalid("invalid token", errors.New("signature is invalid"))
	require.Equal(t, "token_invalid: invalid token: signature is invalid", err.Error())
	require.EqualError(t, errors.Unwrap(err), "signature is invalid")

	require.Equal(t, "credentials: wrong credentials", Credentials("wrong credentials").Error())
}
