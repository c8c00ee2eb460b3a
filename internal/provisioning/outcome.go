package provisioning

import (
	"fmt"
	"net/http"
)

// Kind tags the variant carried by an Outcome.
type Kind int

const (
	Created Kind = iota
	DuplicateUser
	CommunicationFailure
	TransportFailure
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case DuplicateUser:
		return "duplicate_user"
	case CommunicationFailure:
		return "communication_failure"
	case TransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one provisioning call. Only the fields relevant to
// Kind are set: Username for DuplicateUser, StatusCode and Message for
// CommunicationFailure, Message and Err for TransportFailure. Message is safe
// to return to callers; Err is not.
type Outcome struct {
	Kind       Kind
	Username   string
	StatusCode int
	Message    string
	Err        error
}

// Failed reports whether the outcome is anything other than Created.
func (o Outcome) Failed() bool {
	return o.Kind != Created
}

// Classify maps the status code returned by the user-creation endpoint to an
// outcome.
func Classify(username string, statusCode int) Outcome {
	switch statusCode {
	case http.StatusCreated:
		return Outcome{Kind: Created, Username: username}
	case http.StatusConflict:
		return Outcome{
			Kind:     DuplicateUser,
			Username: username,
			Message:  "Duplicate user: " + username,
		}
	default:
		return Outcome{
			Kind:       CommunicationFailure,
			Username:   username,
			StatusCode: statusCode,
			Message:    fmt.Sprintf("Error creating user: status code %d", statusCode),
		}
	}
}

func transportFailure(username string, err error) Outcome {
	return Outcome{
		Kind:     TransportFailure,
		Username: username,
		Message:  "Error creating user",
		Err:      err,
	}
}
