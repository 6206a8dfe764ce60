package horizon

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies why a sequence lookup failed.
type Kind string

const (
	// KindRequestFailed covers non-2xx responses and 4xx statuses embedded in a 2xx body.
	KindRequestFailed Kind = "request_failed"
	// KindServerUnreachable means Horizon answered but reports status 0 in its body.
	KindServerUnreachable Kind = "server_unreachable"
	// KindNetwork covers transport failures and undecodable bodies.
	KindNetwork Kind = "network"
)

// Fixed messages surfaced to users.
const (
	AccountNotFoundMessage = "Account not found. Make sure the correct network is selected and the account is funded/created."
	genericFailureMessage  = "Something went wrong when fetching the transaction sequence number. Please try again."
	networkHint            = "Check network configuration."
)

// ErrAccountNotFound is returned by Result.Value for the AccountMissing outcome.
var ErrAccountNotFound = errors.New(AccountNotFoundMessage)

// Error is a sequence lookup failure that is not the expected "account missing" outcome.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	cause      error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func requestFailed(status int, message string) *Error {
	return &Error{Kind: KindRequestFailed, StatusCode: status, Message: message}
}

func serverUnreachable(horizonURL string) *Error {
	return &Error{Kind: KindServerUnreachable, Message: fmt.Sprintf("Unable to reach server at %s.", horizonURL)}
}

// normalize passes typed errors through and folds everything else into a KindNetwork error.
func normalize(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: KindNetwork, Message: fmt.Sprintf("%s. %s", err.Error(), networkHint), cause: err}
}

// IsKind reports whether err is a lookup Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Kind == kind
}
