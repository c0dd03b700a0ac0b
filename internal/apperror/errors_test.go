package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindTextAndStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		name   string
		text   string
		status int
	}{
		{KindBadRequestBody, "BadRequestBody", "Bad Request Body", http.StatusBadRequest},
		{KindInvalidProperties, "InvalidProperties", "InvalidProperties", http.StatusBadRequest},
		{KindMissingRequiredProperties, "MissingRequiredProperties", "MissingRequiredProperties", http.StatusBadRequest},
		{KindTypeMismatches, "TypeMismatches", "TypeMismatches", http.StatusBadRequest},
		{KindInvalidIDFormat, "InvalidIdFormat", "Invalid ID Format", http.StatusBadRequest},
		{KindMethodNotAllowed, "MethodNotAllowed", "Method Not Allowed", http.StatusMethodNotAllowed},
		{KindNotFound, "NotFound", "Not Found", http.StatusNotFound},
		{KindUnauthorized, "Unauthorized", "Unauthorized", http.StatusUnauthorized},
		{KindNoResultsFound, "NoResultsFound", "No Results Found", http.StatusNotFound},
		{KindInternal, "Internal", "Internal Server Error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.text, tt.kind.Text())
			assert.Equal(t, tt.status, tt.kind.Status())
		})
	}
}

func TestKinds_CoversTable(t *testing.T) {
	assert.Len(t, Kinds, len(kindTable))
	seen := map[Kind]bool{}
	for _, k := range Kinds {
		assert.False(t, seen[k], "duplicate kind %s", k)
		seen[k] = true
	}
}

func TestUnknownKindFallsBackToInternal(t *testing.T) {
	k := Kind(999)
	assert.Equal(t, "Internal", k.String())
	assert.Equal(t, http.StatusInternalServerError, k.Status())
}

func TestNew_MessageComposition(t *testing.T) {
	assert.Equal(t, "Not Found", NewNotFound("").Message)
	assert.Equal(t, "Not Found: item 42", NewNotFound("item 42").Message)
	assert.Equal(t, "Unauthorized", NewUnauthorized().Message)
	assert.Equal(t, "Invalid ID Format: abc", NewInvalidIDFormat("abc").Message)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NewNotFound("x")))
	assert.Equal(t, KindNoResultsFound, KindOf(fmt.Errorf("listing: %w", NewNoResultsFound(""))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestNewInternal_HidesCause(t *testing.T) {
	cause := errors.New("connection refused on 10.0.0.3:27017")
	err := NewInternal(cause)

	assert.Equal(t, "Internal Server Error", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.Code)
	assert.True(t, errors.Is(err, cause))
	assert.NotContains(t, SafeMessage(err), "10.0.0.3")
}

func TestSafeMessageAndCode(t *testing.T) {
	wrapped := fmt.Errorf("checking out: %w", NewInvalidProperties("quantity"))
	require.Equal(t, "InvalidProperties: quantity", SafeMessage(wrapped))
	require.Equal(t, http.StatusBadRequest, SafeCode(wrapped))

	raw := errors.New("mongo: no documents in result")
	assert.Equal(t, "Internal Server Error", SafeMessage(raw))
	assert.Equal(t, http.StatusInternalServerError, SafeCode(raw))
}
