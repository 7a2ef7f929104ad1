package psn

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies a failed vendor call so callers can branch without parsing text.
type Kind int

const (
	KindVendor Kind = iota
	KindAuthExpired
	KindNotFound
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindAuthExpired:
		return "auth_expired"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	default:
		return "vendor"
	}
}

// Error is returned for any non-2xx vendor response or transport failure.
type Error struct {
	Kind   Kind
	Status int
	Body   string
	URL    string
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("psn %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("psn %s (%d): %s", e.Kind, e.Status, e.Body)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrNoAuthCode means the authorize endpoint did not hand out a code, which
// happens when the npsso secret is stale or revoked.
var ErrNoAuthCode = errors.New("psn: authorize returned no code")

// expirySignatures are body fragments the vendor uses for rejected tokens on
// responses that are not plain 401s.
var expirySignatures = []string{"expired token", "accessdenied", "invalid_token"}

func classify(status int, body string) Kind {
	if status == 401 {
		return KindAuthExpired
	}
	lower := strings.ToLower(body)
	for _, sig := range expirySignatures {
		if strings.Contains(lower, sig) {
			return KindAuthExpired
		}
	}
	if status == 404 {
		return KindNotFound
	}
	return KindVendor
}

// IsKind reports whether err (or anything it wraps) is a vendor *Error of kind k.
func IsKind(err error, k Kind) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == k
}

// IsDNS reports whether a network failure came from name resolution.
func IsDNS(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "no such host")
}

// StatusFor maps an error from this package to the proxy's HTTP status and JSON body.
// Errors from elsewhere become 500 with their message.
func StatusFor(err error) (int, map[string]string) {
	var pe *Error
	if !errors.As(err, &pe) {
		return 500, map[string]string{"error": err.Error()}
	}
	switch pe.Kind {
	case KindAuthExpired:
		return 401, map[string]string{"error": "vendor rejected credentials", "details": pe.Body}
	case KindNotFound:
		return 404, map[string]string{"error": "not found", "details": pe.Body}
	case KindNetwork:
		details := pe.Err.Error()
		if IsDNS(pe.Err) {
			details = "dns lookup failed"
		}
		return 503, map[string]string{"error": "vendor unreachable", "details": details}
	default:
		status := pe.Status
		if status < 400 {
			status = 502
		}
		return status, map[string]string{"error": "vendor error", "details": pe.Body}
	}
}
