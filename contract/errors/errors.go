package errors

// Error codes for the broker contracts. Keep stable; used across adapters, broker and testbroker.
const (
	ErrCodeSubscriberNotFound  = "broker.subscriber_not_found"
	ErrCodeTimeout             = "broker.timeout"
	ErrCodeValidationFailed    = "broker.validation_failed"
	ErrCodeNotConnected        = "broker.not_connected"
	ErrCodeBrokerClosed        = "broker.closed"
	ErrCodePublishFailed       = "broker.publish_failed"
	ErrCodeRequestUnsupported  = "broker.request_unsupported"
	ErrCodeSerializationFailed = "broker.serialization_failed"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	// ErrSubscriberNotFound is returned when a publish or request matched no subscriber.
	ErrSubscriberNotFound = Code(ErrCodeSubscriberNotFound)
	// ErrTimeout is returned when a request did not complete before its deadline.
	ErrTimeout             = Code(ErrCodeTimeout)
	ErrValidationFailed    = Code(ErrCodeValidationFailed)
	ErrNotConnected        = Code(ErrCodeNotConnected)
	ErrBrokerClosed        = Code(ErrCodeBrokerClosed)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrRequestUnsupported  = Code(ErrCodeRequestUnsupported)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
)
