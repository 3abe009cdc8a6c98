package internaldefs

import (
	"github.com/MrEthical07/sellerhub"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   sellerhub.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   sellerhub.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: sellerhub.MetricSignInSuccess, Name: "sellerhub_sign_in_success_total", Help: "Successful sign-ins that produced a session."},
	{ID: sellerhub.MetricSignInFailure, Name: "sellerhub_sign_in_failure_total", Help: "Failed sign-in attempts."},
	{ID: sellerhub.MetricSignInRateLimited, Name: "sellerhub_sign_in_rate_limited_total", Help: "Sign-in attempts rejected by the throttle."},
	{ID: sellerhub.MetricSubjectCreated, Name: "sellerhub_subject_created_total", Help: "Subjects created on first sign-in."},
	{ID: sellerhub.MetricSessionIssued, Name: "sellerhub_session_issued_total", Help: "Token pairs issued and cached."},
	{ID: sellerhub.MetricSessionIssueFailure, Name: "sellerhub_session_issue_failure_total", Help: "Token pairs that could not be issued."},
	{ID: sellerhub.MetricRefreshSuccess, Name: "sellerhub_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: sellerhub.MetricRefreshFailure, Name: "sellerhub_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: sellerhub.MetricRefreshMismatch, Name: "sellerhub_refresh_mismatch_total", Help: "Refresh tokens that verified but were not the cached one."},
	{ID: sellerhub.MetricRefreshRateLimited, Name: "sellerhub_refresh_rate_limited_total", Help: "Refresh attempts rejected by the throttle."},
	{ID: sellerhub.MetricValidateSuccess, Name: "sellerhub_validate_success_total", Help: "Access tokens accepted by the guard."},
	{ID: sellerhub.MetricValidateFailure, Name: "sellerhub_validate_failure_total", Help: "Access tokens rejected by the guard."},
	{ID: sellerhub.MetricLogout, Name: "sellerhub_logout_total", Help: "Logout requests."},
	{ID: sellerhub.MetricSessionRevoked, Name: "sellerhub_session_revoked_total", Help: "Cache entries removed by logout."},
	{ID: sellerhub.MetricRateLimitHit, Name: "sellerhub_rate_limit_hit_total", Help: "Throttle checks that denied a request."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: sellerhub.MetricValidateLatency, Name: "sellerhub_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as metric-name-safe suffixes.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "sellerhub_audit_dropped_total"

// NormalizeBuckets copies raw into a fixed-size array, zero-filling when short.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
