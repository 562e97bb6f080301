package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/ragchat-io/ragchat/internal/domain"
)

// maxRetryAttempts bounds automatic resubmissions of a failed exchange.
const maxRetryAttempts = 3

// ErrorKind classifies a failed exchange for the retry decision.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnavailable
	KindRateLimited
	KindNetwork
	KindTimeout
	KindEmptyResponse
)

// StatusError reports a non-success HTTP status from the chat endpoint.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("HTTP %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("HTTP %d %s", e.Code, http.StatusText(e.Code))
}

// Classify maps an error to its kind. Structured errors are inspected
// first; plain-text matching remains only as a fallback at the transport
// boundary, preserving the original category set.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	if errors.Is(err, domain.ErrNoResponseContent) {
		return KindEmptyResponse
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusServiceUnavailable, http.StatusBadGateway:
			return KindUnavailable
		case http.StatusTooManyRequests:
			return KindRateLimited
		default:
			return KindOther
		}
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return KindNetwork
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "HTTP 503"), strings.Contains(msg, "HTTP 502"):
		return KindUnavailable
	case strings.Contains(msg, "HTTP 429"):
		return KindRateLimited
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return KindTimeout
	case strings.Contains(msg, "NetworkError"),
		strings.Contains(msg, "Failed to fetch"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"):
		return KindNetwork
	default:
		return KindOther
	}
}

// Retryable reports whether the failure warrants an automatic resubmission.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindUnavailable, KindRateLimited, KindNetwork, KindEmptyResponse:
		return true
	default:
		return false
	}
}

// Message is the conversational text shown to the user for this failure.
// Never a raw stack trace or JSON body.
func (k ErrorKind) Message() string {
	switch k {
	case KindUnavailable:
		return "The AI service is temporarily unavailable. I'll retry in a moment."
	case KindRateLimited:
		return "We're sending messages a little too quickly. Giving it a moment before retrying."
	case KindNetwork:
		return "I couldn't reach the server. Checking the connection and retrying."
	case KindTimeout:
		return "The request timed out. Please try sending your message again."
	case KindEmptyResponse:
		return "The model returned an empty response. Let me try that again."
	default:
		return "Something went wrong while processing your message. Please try again."
	}
}
