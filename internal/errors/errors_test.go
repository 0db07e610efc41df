package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"gapfill/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsDomainCode(t *testing.T) {
	err := Wrap(core.NewLengthMismatchError("flow", 3, 2), "impute column")
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.True(t, stderrors.Is(err, core.ErrLengthMismatch))
	assert.Contains(t, err.Error(), "impute column")

	err = Wrap(core.ErrJobNotFound, "load job")
	assert.Equal(t, CodeNotFound, GetCode(err))

	err = Wrap(stderrors.New("boom"), "write")
	assert.Equal(t, CodeInternalError, GetCode(err))

	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWrapPreservesAppErrorCode(t *testing.T) {
	inner := ConfigInvalid("SPLINE_MAX_GAP must be >= LINEAR_MAX_GAP")
	err := Wrapf(inner, "load %s", "config")
	assert.Equal(t, CodeConfigInvalid, GetCode(err))
	assert.True(t, IsAppError(err))
}

func TestGetCodeForPlainErrors(t *testing.T) {
	assert.Equal(t, CodeInvalidInput, GetCode(core.ErrSeriesTooShort))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidInput))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeUnavailable))
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatus(CodePayloadTooLarge))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeDatabaseError))
}
