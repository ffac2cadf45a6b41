package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
)

func TestWithStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "missing primary key", err: fmt.Errorf("%w for table post", qb.ErrMissingPrimaryKey), status: http.StatusUnprocessableEntity},
		{name: "malformed filter", err: qb.ErrMalformedFilter, status: http.StatusBadRequest},
		{name: "empty update", err: qb.ErrEmptyUpdate, status: http.StatusBadRequest},
		{name: "unknown op", err: render.ErrUnknownOperation, status: http.StatusBadRequest},
		{name: "body too large", err: errBodyTooLarge, status: http.StatusRequestEntityTooLarge},
		{name: "already carries status", err: &ValidationError{}, status: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var sc StatusCodeResponder

			err := withStatus(tc.err)

			assert.True(t, errors.As(err, &sc))
			assert.Equal(t, tc.status, sc.StatusCode())
			assert.ErrorIs(t, err, tc.err)
		})
	}

	unknown := errors.New("disk on fire")
	assert.Equal(t, unknown, withStatus(unknown))
	assert.NoError(t, withStatus(nil))
}
