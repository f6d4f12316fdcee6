package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNoRoutes      = errors.New("no usable routes")
	ErrInvalidSource = errors.New("invalid source")
)
