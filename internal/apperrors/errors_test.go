package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	notFound := NotFound("task %s not found", "t1")
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsPrecondition(notFound))
	assert.Equal(t, "task t1 not found", notFound.Error())

	precondition := Precondition("already applied")
	assert.True(t, IsPrecondition(precondition))

	unavailable := Store(errors.New("connection refused"), "failed to load task")
	assert.True(t, IsUnavailable(unavailable))
	assert.ErrorContains(t, unavailable, "failed to load task")

	// Wrapped errors still match their kind.
	wrapped := fmt.Errorf("handling request: %w", notFound)
	assert.True(t, IsNotFound(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("gone")))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(Precondition("nope")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Store(errors.New("down"), "store")))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("who are you")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}
