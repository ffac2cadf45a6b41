package http

import (
	"errors"
	"net/http"

	"github.com/sllt/sqlstmt/pkg/sqlstmt/datasource/sql/qb"
	"github.com/sllt/sqlstmt/pkg/sqlstmt/render"
)

var (
	errBodyTooLarge = errors.New("request body too large")
	errTooManyItems = errors.New("too many requests in batch")
	errEmptyBatch   = errors.New("batch has no requests")
)

// statusError attaches an HTTP status to a builder or decoding error.
type statusError struct {
	err    error
	status int
}

func (e statusError) Error() string { return e.err.Error() }

func (e statusError) Unwrap() error { return e.err }

func (e statusError) StatusCode() int { return e.status }

var clientErrors = []error{
	render.ErrMalformedRequest,
	render.ErrUnknownOperation,
	render.ErrMissingID,
	qb.ErrInvalidIdentifier,
	qb.ErrMalformedFilter,
	qb.ErrUnsupportedOperator,
	qb.ErrMalformedRow,
	qb.ErrUnsupportedValue,
	qb.ErrEmptyInsert,
	qb.ErrEmptyUpdate,
	errTooManyItems,
	errEmptyBatch,
}

// withStatus maps err to the status it should be answered with. Errors that
// already carry a status are returned unchanged.
func withStatus(err error) error {
	if err == nil {
		return nil
	}

	var sc StatusCodeResponder
	if errors.As(err, &sc) {
		return err
	}

	switch {
	case errors.Is(err, errBodyTooLarge):
		return statusError{err: err, status: http.StatusRequestEntityTooLarge}
	case errors.Is(err, qb.ErrMissingPrimaryKey):
		return statusError{err: err, status: http.StatusUnprocessableEntity}
	}

	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return statusError{err: err, status: http.StatusBadRequest}
		}
	}

	return err
}
