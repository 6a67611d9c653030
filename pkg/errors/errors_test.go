package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:       http.StatusBadRequest,
		CodeUnsupported:   http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeAlreadyExists: http.StatusConflict,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(New(code, "x")), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("plain")))
}

func TestCodeAndMessageThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "Project not found")
	wrapped := fmt.Errorf("dispatch: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, "Project not found", MessageOf(wrapped))
	assert.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, "plain", MessageOf(fmt.Errorf("plain")))
}

func TestWrapNilBehavesLikeNew(t *testing.T) {
	err := Wrap(nil, CodeInternal, "boom")
	assert.Nil(t, err.Err)
	assert.Equal(t, "internal: boom", err.Error())
}
