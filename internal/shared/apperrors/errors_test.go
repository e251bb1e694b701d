package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_SurvivesWrapping(t *testing.T) {
	base := FailedPrecondition("insufficient wallet balance")
	wrapped := fmt.Errorf("process payment: %w", base)

	assert.Equal(t, KindFailedPrecondition, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindFailedPrecondition))
	assert.False(t, Is(nil, KindFailedPrecondition))
}

func TestKindOf_ForeignErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindUnauthenticated:    http.StatusUnauthorized,
		KindPermissionDenied:   http.StatusForbidden,
		KindNotFound:           http.StatusNotFound,
		KindAlreadyExists:      http.StatusConflict,
		KindAborted:            http.StatusConflict,
		KindFailedPrecondition: http.StatusBadRequest,
		KindInvalidArgument:    http.StatusBadRequest,
		KindGateway:            http.StatusBadGateway,
		KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := Internal(errors.New("pq: connection reset"), "failed to lock trip")
	assert.Equal(t, "internal server error", PublicMessage(err))
	assert.Equal(t, "seat 4 is already taken", PublicMessage(AlreadyExists("seat %d is already taken", 4)))
}
