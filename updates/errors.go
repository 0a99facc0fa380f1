package updates

import "fmt"

// TransportError reports a network, TLS or HTTP status failure
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteProtocolError reports a response that is not the expected JSON
type RemoteProtocolError struct {
	Op  string
	Err error
}

func (e *RemoteProtocolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteProtocolError) Unwrap() error {
	return e.Err
}
