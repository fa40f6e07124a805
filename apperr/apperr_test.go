package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnexpected, KindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("Event not found")))

	wrapped := fmt.Errorf("clone: %w", Conflict("Website already exists for this event"))
	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.False(t, Is(nil, KindConflict))
}

func TestMessageHidesUnexpected(t *testing.T) {
	assert.Equal(t, "Event not found", Message(NotFound("Event not found")))
	assert.Equal(t, "Internal server error", Message(errors.New("mongo: connection reset")))
	assert.Equal(t, "Internal server error", Message(Wrap(KindUnexpected, "db exploded", errors.New("x"))))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("smtp: 535")
	err := Wrap(KindEmailDeliveryFailed, "Failed to send email", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "smtp: 535")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:            http.StatusNotFound,
		KindUnauthorized:        http.StatusForbidden,
		KindValidation:          http.StatusBadRequest,
		KindPathConflict:        http.StatusBadRequest,
		KindConflict:            http.StatusConflict,
		KindUploadFailure:       http.StatusBadGateway,
		KindEmailDeliveryFailed: http.StatusBadGateway,
		KindUnexpected:          http.StatusInternalServerError,
		Kind("other"):           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), kind)
	}
}
