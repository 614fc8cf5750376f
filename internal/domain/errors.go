// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidItemKind is returned for an item kind other than text or image.
	ErrInvalidItemKind = errors.New("invalid item kind")

	// ErrMissingImageURL is returned when an image item has no image URL.
	ErrMissingImageURL = errors.New("image item requires an image URL")
)
