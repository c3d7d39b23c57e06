package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/peoplematter/pmctl/internal/cli/client"
)

// Kind classifies why an operation failed
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindServer
	KindNoResponse
	KindInvalidInput
)

var kindNames = map[Kind]string{
	KindUnknown:      "unknown",
	KindUnauthorized: "unauthorized",
	KindForbidden:    "forbidden",
	KindNotFound:     "not_found",
	KindConflict:     "conflict",
	KindServer:       "server_error",
	KindNoResponse:   "no_response",
	KindInvalidInput: "invalid_input",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// User-facing notices for each failure kind
const (
	MsgInvalidCredentials = "Invalid credentials."
	MsgAccessDenied       = "Access denied."
	MsgNotFound           = "Data not found."
	MsgConflict           = "Data already exists."
	MsgServerError        = "Server error."
	MsgNoResponse         = "No response was received."
	MsgSomethingWrong     = "Something went wrong."
)

// Failure is a classified operation error
type Failure struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // notice shown to the user
	Cause   error
}

func (f *Failure) Error() string {
	if f.Cause == nil {
		return f.Message
	}
	return fmt.Sprintf("%s: %v", f.Message, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// Classify maps a client error onto the failure taxonomy
func Classify(err error) *Failure {
	if err == nil {
		return nil
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}

	if errors.Is(err, client.ErrNoResponse) {
		return &Failure{Kind: KindNoResponse, Message: MsgNoResponse, Cause: err}
	}

	return &Failure{Kind: KindUnknown, Message: MsgSomethingWrong, Cause: err}
}

func classifyStatus(status int, cause error) *Failure {
	f := &Failure{Status: status, Cause: cause}
	switch {
	case status == http.StatusUnauthorized:
		f.Kind, f.Message = KindUnauthorized, MsgInvalidCredentials
	case status == http.StatusForbidden:
		f.Kind, f.Message = KindForbidden, MsgAccessDenied
	case status == http.StatusNotFound:
		f.Kind, f.Message = KindNotFound, MsgNotFound
	case status == http.StatusConflict:
		f.Kind, f.Message = KindConflict, MsgConflict
	case status >= 500 && status < 600:
		f.Kind, f.Message = KindServer, MsgServerError
	default:
		f.Kind, f.Message = KindUnknown, MsgSomethingWrong
	}
	return f
}

// invalidInput builds the failure for input rejected before any request is sent
func invalidInput(message string, cause error) *Failure {
	return &Failure{Kind: KindInvalidInput, Message: message, Cause: cause}
}
