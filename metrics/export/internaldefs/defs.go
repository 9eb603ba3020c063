package internaldefs

import (
	goIdentity "github.com/MrEthical07/goIdentity"
)

// CounterDef names one engine counter for exporters.
//
// Flow and Outcome group counters for exporters that prefer one instrument per
// flow with an outcome attribute over one name per counter.
type CounterDef struct {
	ID      goIdentity.MetricID
	Name    string
	Flow    string
	Outcome string
	Help    string
}

// HistogramDef names one engine latency histogram for exporters.
type HistogramDef struct {
	ID        goIdentity.MetricID
	Name      string
	Operation string
	Help      string
}

// AuditDroppedName is the counter exported for AuditDropped.
const AuditDroppedName = "goidentity_audit_dropped_total"

const AuditDroppedHelp = "Audit events dropped by a full dispatcher buffer or an expired caller context."

var CounterDefs = []CounterDef{
	{ID: goIdentity.MetricRegisterRequest, Name: "goidentity_register_request_total", Flow: "register", Outcome: "request", Help: "Registration requests."},
	{ID: goIdentity.MetricRegisterSuccess, Name: "goidentity_register_success_total", Flow: "register", Outcome: "success", Help: "Registrations confirmed by OTP."},
	{ID: goIdentity.MetricRegisterFailure, Name: "goidentity_register_failure_total", Flow: "register", Outcome: "failure", Help: "Failed registration requests or confirmations."},
	{ID: goIdentity.MetricRegisterDuplicate, Name: "goidentity_register_duplicate_total", Flow: "register", Outcome: "duplicate", Help: "Registrations rejected because the email exists."},
	{ID: goIdentity.MetricOTPIssued, Name: "goidentity_otp_issued_total", Flow: "otp", Outcome: "issued", Help: "OTP codes generated and mailed."},
	{ID: goIdentity.MetricOTPCooldown, Name: "goidentity_otp_cooldown_total", Flow: "otp", Outcome: "cooldown", Help: "OTP generations rejected by the cooldown window."},
	{ID: goIdentity.MetricOTPLocked, Name: "goidentity_otp_locked_total", Flow: "otp", Outcome: "locked", Help: "OTP operations rejected by an active lock."},
	{ID: goIdentity.MetricOTPVerifySuccess, Name: "goidentity_otp_verify_success_total", Flow: "otp", Outcome: "verify_success", Help: "Successful OTP verifications."},
	{ID: goIdentity.MetricOTPVerifyFailure, Name: "goidentity_otp_verify_failure_total", Flow: "otp", Outcome: "verify_failure", Help: "OTP verifications with a wrong or expired code."},
	{ID: goIdentity.MetricOTPAttemptsExceeded, Name: "goidentity_otp_attempts_exceeded_total", Flow: "otp", Outcome: "attempts_exceeded", Help: "OTP verifications that exhausted the attempt budget."},
	{ID: goIdentity.MetricLoginSuccess, Name: "goidentity_login_success_total", Flow: "login", Outcome: "success", Help: "Successful password logins."},
	{ID: goIdentity.MetricLoginFailure, Name: "goidentity_login_failure_total", Flow: "login", Outcome: "failure", Help: "Failed password logins."},
	{ID: goIdentity.MetricPasswordResetRequest, Name: "goidentity_password_reset_request_total", Flow: "password_reset", Outcome: "request", Help: "Password reset requests."},
	{ID: goIdentity.MetricPasswordResetSuccess, Name: "goidentity_password_reset_success_total", Flow: "password_reset", Outcome: "success", Help: "Completed password resets."},
	{ID: goIdentity.MetricPasswordResetFailure, Name: "goidentity_password_reset_failure_total", Flow: "password_reset", Outcome: "failure", Help: "Failed password reset confirmations."},
	{ID: goIdentity.MetricPasswordResetUnsupported, Name: "goidentity_password_reset_unsupported_total", Flow: "password_reset", Outcome: "unsupported", Help: "Password resets rejected for external-provider accounts."},
	{ID: goIdentity.MetricGoogleLoginSuccess, Name: "goidentity_google_login_success_total", Flow: "google_login", Outcome: "success", Help: "Successful Google logins."},
	{ID: goIdentity.MetricGoogleLoginFailure, Name: "goidentity_google_login_failure_total", Flow: "google_login", Outcome: "failure", Help: "Failed Google logins."},
	{ID: goIdentity.MetricGoogleUserCreated, Name: "goidentity_google_user_created_total", Flow: "google_login", Outcome: "user_created", Help: "Users created on first Google login."},
	{ID: goIdentity.MetricProfileRead, Name: "goidentity_profile_read_total", Flow: "profile", Outcome: "read", Help: "Profile reads."},
	{ID: goIdentity.MetricProfileUpdated, Name: "goidentity_profile_updated_total", Flow: "profile", Outcome: "updated", Help: "Profile updates."},
	{ID: goIdentity.MetricTokenInvalid, Name: "goidentity_token_invalid_total", Flow: "access", Outcome: "token_invalid", Help: "Rejected access tokens."},
	{ID: goIdentity.MetricAccountDisabled, Name: "goidentity_account_disabled_total", Flow: "access", Outcome: "account_disabled", Help: "Requests rejected for disabled accounts."},
	{ID: goIdentity.MetricMailFailure, Name: "goidentity_mail_failure_total", Flow: "mail", Outcome: "failure", Help: "OTP mails that failed to send."},
	{ID: goIdentity.MetricRateLimitHit, Name: "goidentity_rate_limit_hit_total", Flow: "access", Outcome: "rate_limited", Help: "Requests denied by the rate limiter."},
}

var HistogramDefs = []HistogramDef{
	{ID: goIdentity.MetricTokenValidateLatency, Name: "goidentity_token_validate_latency_seconds", Operation: "token_validate", Help: "Access token validation latency."},
	{ID: goIdentity.MetricOTPVerifyLatency, Name: "goidentity_otp_verify_latency_seconds", Operation: "otp_verify", Help: "OTP verification latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine's
// eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundLabels are the le values, +Inf included, used as attribute
// values by exporters that flatten histograms into gauges.
var HistogramBoundLabels = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// Flows returns the distinct counter flows in definition order.
func Flows() []string {
	var out []string
	seen := make(map[string]bool)
	for _, d := range CounterDefs {
		if !seen[d.Flow] {
			seen[d.Flow] = true
			out = append(out, d.Flow)
		}
	}
	return out
}

// NormalizeBuckets pads or truncates raw to the engine's eight buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
