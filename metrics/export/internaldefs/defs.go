package internaldefs

import (
	"strconv"
	"strings"

	goSession "github.com/MrEthical07/goSession"
)

// Prefix starts every exported series name.
const Prefix = "gosession_"

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goSession.MetricAuthenticateSuccess, Name: Prefix + "authenticate_success_total", Help: "Requests authenticated, with or without rotation."},
	{ID: goSession.MetricAuthenticateNoToken, Name: Prefix + "authenticate_no_token_total", Help: "Requests without session cookies."},
	{ID: goSession.MetricAuthenticateTokenInvalid, Name: Prefix + "authenticate_token_invalid_total", Help: "Access tokens that failed verification."},
	{ID: goSession.MetricAuthenticateSessionExpired, Name: Prefix + "authenticate_session_expired_total", Help: "Sessions that could not be renewed."},
	{ID: goSession.MetricAuthenticateInvalidSession, Name: Prefix + "authenticate_invalid_session_total", Help: "Sessions rejected by the store or its failure."},
	{ID: goSession.MetricRefreshSuccess, Name: Prefix + "refresh_success_total", Help: "Committed refresh token rotations."},
	{ID: goSession.MetricRefreshReuseDetected, Name: Prefix + "refresh_reuse_detected_total", Help: "Replayed refresh tokens; each revokes its session."},
	{ID: goSession.MetricCSRFRejected, Name: Prefix + "csrf_rejected_total", Help: "State-changing requests rejected by the CSRF check."},
	{ID: goSession.MetricStoreFailure, Name: Prefix + "store_failure_total", Help: "Session store errors and timeouts."},
	{ID: goSession.MetricLoginSuccess, Name: Prefix + "login_success_total", Help: "Successful logins."},
	{ID: goSession.MetricLoginFailure, Name: Prefix + "login_failure_total", Help: "Failed logins."},
	{ID: goSession.MetricLogout, Name: Prefix + "logout_total", Help: "Logout calls."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricAuthenticateLatency, Name: Prefix + "authenticate_latency_seconds", Help: "Authenticate latency."},
}

// AuditDropped is the series for events lost to audit backpressure.
var AuditDropped = CounterDef{Name: Prefix + "audit_dropped_total", Help: "Audit events dropped by backpressure or request cancellation."}

// UpperBounds are the bucket limits in seconds; the last bucket is +Inf.
var UpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketCount is len(UpperBounds) plus the +Inf bucket.
const BucketCount = 8

// BoundLabel renders bucket i as a Prometheus le value.
func BoundLabel(i int) string {
	if i >= len(UpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(UpperBounds[i], 'f', -1, 64)
}

// BoundSuffix renders bucket i for use inside an instrument name.
func BoundSuffix(i int) string {
	if i >= len(UpperBounds) {
		return "inf"
	}
	return strings.ReplaceAll(BoundLabel(i), ".", "_")
}

// Cumulative converts per-bucket counts from a snapshot into cumulative
// counts, padding or truncating to BucketCount.
func Cumulative(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
