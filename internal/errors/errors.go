package errors

import "errors"

// This package defines the sentinel errors shared by the store, the services
// and the HTTP layer. Lower layers wrap them with fmt.Errorf("%w: ...") and
// the API layer uses errors.Is() to map them onto HTTP responses.

var (
	// ErrNotFound signifies that a requested resource could not be located.
	// Chat and stream reads never surface it; they degrade to empty results.
	// This is typically mapped to a 404 Not Found HTTP status.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidArgument signifies a missing or malformed argument, such as an
	// empty chat id or a message without a role.
	// This is typically mapped to a 400 Bad Request HTTP status.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAllocation signifies that a new chat record could not be reserved,
	// for example because the storage root is not writable.
	ErrAllocation = errors.New("could not allocate chat")

	// ErrDuplicateID signifies that a freshly generated chat id already
	// names an existing record.
	// This is typically mapped to a 409 Conflict HTTP status.
	ErrDuplicateID = errors.New("duplicate chat id")

	// ErrConcurrentWrite signifies that the per-chat write lock could not be
	// acquired before the caller's deadline.
	// This is typically mapped to a 409 Conflict HTTP status.
	ErrConcurrentWrite = errors.New("concurrent write conflict")

	// ErrStorageIO signifies an underlying read or write failure in the
	// storage backend.
	ErrStorageIO = errors.New("storage i/o error")

	// ErrStreamNotActive signifies that the stream a client tried to resume
	// has already finished or was never started by this process.
	ErrStreamNotActive = errors.New("stream not active")

	// ErrInternal signifies an unexpected error on the server. This is a generic
	// error used to prevent leaking sensitive implementation details to the client.
	// This is typically mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)
