package models

import "errors"

// Sentinel errors shared by the repositories, services and handlers.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
