// ABOUTME: JSON frame types for the agent gateway wire protocol
// ABOUTME: Request, response, and event frames plus the errors they produce

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame type tags.
const (
	FrameRequest  = "req"
	FrameResponse = "res"
	FrameEvent    = "evt"
)

// ErrNotConnected is returned by Request when the connection is not authenticated.
var ErrNotConnected = errors.New("not connected to agent gateway")

// ErrConnectionClosed is returned to in-flight requests when their socket closes.
var ErrConnectionClosed = errors.New("agent gateway connection closed")

// ErrAlreadyConnecting is returned by Connect while another attempt is in progress.
var ErrAlreadyConnecting = errors.New("connection attempt already in progress")

// requestFrame is an outbound {type:"req"} frame.
type requestFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params"`
}

// inboundFrame is the union of frames the gateway sends us.
type inboundFrame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *frameError     `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
}

type frameError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// RemoteError is a failure reported by the gateway in a response frame.
type RemoteError struct {
	Method  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s failed (%s): %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway %s failed: %s", e.Method, e.Message)
}

// TimeoutError is returned when no response arrives within the request timeout.
type TimeoutError struct {
	Method string
}

func (e *TimeoutError) Error() string {
	return "gateway request timed out: " + e.Method
}

// remoteErrorFrom builds a RemoteError from a failed response frame.
func remoteErrorFrom(method string, fe *frameError) *RemoteError {
	re := &RemoteError{Method: method, Message: "request failed"}
	if fe != nil {
		re.Code = fe.Code
		if fe.Message != "" {
			re.Message = fe.Message
		}
	}
	return re
}
