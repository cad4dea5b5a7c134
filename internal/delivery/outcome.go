package delivery

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// FailureKind classifies why a delivery did not succeed.
type FailureKind string

const (
	FailureTimeout           FailureKind = "timeout"
	FailureConnectionRefused FailureKind = "connection_refused"
	FailureNonSuccessStatus  FailureKind = "non_success_status"
	FailureOther             FailureKind = "other"
)

// Failure is the reason attached to a failed Outcome. StatusCode is only set
// for FailureNonSuccessStatus.
type Failure struct {
	Kind       FailureKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
	Message    string      `json:"message"`
}

func (f Failure) String() string { return f.Message }

// Outcome is either delivered (Failure == nil) or failed.
type Outcome struct {
	Delivered   bool     `json:"delivered"`
	StatusCode  int      `json:"status_code,omitempty"`
	Excerpt     string   `json:"response_excerpt,omitempty"`
	Failure     *Failure `json:"failure,omitempty"`
	PayloadSize int      `json:"payload_size"`
}

func delivered(status int, body string) Outcome {
	return Outcome{Delivered: true, StatusCode: status, Excerpt: excerpt(body)}
}

func nonSuccess(status int, body string) Outcome {
	return Outcome{
		StatusCode: status,
		Excerpt:    excerpt(body),
		Failure: &Failure{
			Kind:       FailureNonSuccessStatus,
			StatusCode: status,
			Message:    fmt.Sprintf("Webhook returned status %d", status),
		},
	}
}

func transportFailure(err error, budget string) Outcome {
	return Outcome{Failure: classify(err, budget)}
}

func classify(err error, budget string) *Failure {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Failure{Kind: FailureTimeout, Message: fmt.Sprintf("Request timed out (%s)", budget)}
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	switch {
	// A reachable host with a bad certificate is not a refused connection.
	case errors.As(err, &verifyErr), errors.As(err, &authorityErr):
		return &Failure{Kind: FailureOther, Message: "Error: " + err.Error()}
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &dnsErr),
		errors.As(err, &opErr) && opErr.Op == "dial":
		return &Failure{Kind: FailureConnectionRefused, Message: "Could not connect to webhook"}
	default:
		return &Failure{Kind: FailureOther, Message: "Error: " + err.Error()}
	}
}
