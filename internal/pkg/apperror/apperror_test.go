package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrCodeDependencyFailure, "платёжный шлюз недоступен")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
	assert.True(t, IsDependencyFailure(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCode_UnknownError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, Code(errors.New("что-то пошло не так")))
	assert.Equal(t, ErrCodeConflict, Code(New(ErrCodeConflict, "оффер уже отправлен")))
}

func TestPredicates_ThroughWrapping(t *testing.T) {
	err := Wrap(ErrMilestoneNotFound, ErrCodeInternal, "обёртка поверх sentinel")

	// errors.As обходит цепочку, поэтому предикат срабатывает по внешнему коду.
	assert.False(t, IsNotFound(err))
	assert.True(t, IsNotFound(ErrMilestoneNotFound))
	assert.True(t, errors.Is(err, ErrMilestoneNotFound))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(ErrCodeValidation, "").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, New(ErrCodeInvalidState, "").HTTPStatus)
	assert.Equal(t, http.StatusConflict, New(ErrCodeConflict, "").HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, New(ErrCodeDatabaseError, "").HTTPStatus)
}
