package render

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureClass labels why a capture failed. Connectivity classes feed
// the failure tracker; everything else is a generic run error.
type FailureClass string

const (
	ClassDNS         FailureClass = "dns"
	ClassRefused     FailureClass = "refused"
	ClassTimeout     FailureClass = "timeout"
	ClassUnreachable FailureClass = "unreachable"
	ClassGeneric     FailureClass = "generic"
)

// Connectivity reports whether the class means the target endpoint was
// unreachable (as opposed to a render/processing problem on our side).
func (c FailureClass) Connectivity() bool {
	return c != ClassGeneric && c != ""
}

// Browser-side navigation errors arrive as text inside the render
// service's error body, so transport inspection alone is not enough.
var messagePatterns = []struct {
	class    FailureClass
	patterns []string
}{
	{ClassDNS, []string{"err_name_not_resolved", "enotfound", "eai_again", "no such host"}},
	{ClassRefused, []string{"err_connection_refused", "econnrefused", "connection refused"}},
	{ClassTimeout, []string{"err_timed_out", "timed out", "timeout", "etimedout"}},
	{ClassUnreachable, []string{"err_address_unreachable", "ehostunreach", "enetunreach", "network is unreachable"}},
}

// Classify maps a capture error onto a failure class, checking typed
// transport errors first and falling back to message patterns.
func Classify(err error) FailureClass {
	if err == nil {
		return ""
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ClassRefused
	}
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return ClassUnreachable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout
	}

	msg := strings.ToLower(err.Error())
	for _, mp := range messagePatterns {
		for _, p := range mp.patterns {
			if strings.Contains(msg, p) {
				return mp.class
			}
		}
	}
	return ClassGeneric
}

// IsConnectivity is the pipeline's routing question: does this failure
// belong to the consecutive-failure counter?
func IsConnectivity(err error) bool {
	return Classify(err).Connectivity()
}
