package models

import "github.com/myrjola/billeffect/internal/errors"

// Error kinds surfaced to the user. Attach them with [errors.Mark] and detect them with [errors.Is].
var (
	// ErrEmptyInput means the ingested text is blank.
	ErrEmptyInput = errors.NewSentinel("bill text is empty")
	// ErrUnsupportedFormat means the file type has no ingestion path.
	ErrUnsupportedFormat = errors.NewSentinel("unsupported file format")
	// ErrTransport means a remote call failed, including non-success HTTP statuses.
	ErrTransport = errors.NewSentinel("remote service unavailable")
	// ErrParse means a remote response did not contain the expected structured payload.
	ErrParse = errors.NewSentinel("unexpected response from remote service")
	// ErrConfiguration means a remote mode was selected without the required credential.
	ErrConfiguration = errors.NewSentinel("remote service not configured")
)

// Kinds lists the user-facing error kinds in the order they are matched.
var Kinds = []error{ErrEmptyInput, ErrUnsupportedFormat, ErrTransport, ErrParse, ErrConfiguration}

// UserMessage returns the message of the first error kind err matches, or fallback if none.
func UserMessage(err error, fallback string) string {
	for _, kind := range Kinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return fallback
}
