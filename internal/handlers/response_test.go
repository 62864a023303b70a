package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"telecomstore/internal/apperr"
)

func TestBindingErrorWithoutValidator(t *testing.T) {
	err := bindingError(errors.New("unexpected EOF"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "invalid request body", err.Error())
}

func TestParsePaginationParams(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), page)
	assert.Equal(t, int64(20), limit)

	_, limit, err = parsePaginationParams("3", "1000")
	assert.NoError(t, err)
	assert.Equal(t, int64(maxLimit), limit)

	_, _, err = parsePaginationParams("-1", "")
	assert.Error(t, err)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context, *readpref.ReadPref) error { return p.err }

func TestHealth(t *testing.T) {
	w, env := serve(t, http.MethodGet, "/health", "/health", nil, primitive.NilObjectID, "", Health(fakePinger{}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	w, env = serve(t, http.MethodGet, "/health", "/health", nil, primitive.NilObjectID, "", Health(fakePinger{err: errors.New("no primary")}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable", env.Error)
}
