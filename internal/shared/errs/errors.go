// Package errs holds the error taxonomy shared by the chatbot core.
// Component errors wrap one of these sentinels so callers can branch with errors.Is.
package errs

import "errors"

var (
	// ErrExternalServiceUnavailable covers the classifier, the embedder and the messaging channel.
	ErrExternalServiceUnavailable = errors.New("external service unavailable")

	// ErrDataInconsistency is returned when persisted artifacts or references disagree,
	// e.g. a vector index without its document list or a cart line for a missing product.
	ErrDataInconsistency = errors.New("data inconsistency")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")

	// ErrInvalidState marks a transition requested from a state it cannot apply to.
	ErrInvalidState = errors.New("invalid conversation state")
)
