package goIdentity

import internalmetrics "github.com/MrEthical07/goIdentity/internal/metrics"

// MetricID identifies a counter or latency histogram.
type MetricID = internalmetrics.MetricID

// Metrics is the engine's in-process metric store.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

const (
	MetricRegisterRequest          = internalmetrics.MetricRegisterRequest
	MetricRegisterSuccess          = internalmetrics.MetricRegisterSuccess
	MetricRegisterFailure          = internalmetrics.MetricRegisterFailure
	MetricRegisterDuplicate        = internalmetrics.MetricRegisterDuplicate
	MetricOTPIssued                = internalmetrics.MetricOTPIssued
	MetricOTPCooldown              = internalmetrics.MetricOTPCooldown
	MetricOTPLocked                = internalmetrics.MetricOTPLocked
	MetricOTPVerifySuccess         = internalmetrics.MetricOTPVerifySuccess
	MetricOTPVerifyFailure         = internalmetrics.MetricOTPVerifyFailure
	MetricOTPAttemptsExceeded      = internalmetrics.MetricOTPAttemptsExceeded
	MetricLoginSuccess             = internalmetrics.MetricLoginSuccess
	MetricLoginFailure             = internalmetrics.MetricLoginFailure
	MetricPasswordResetRequest     = internalmetrics.MetricPasswordResetRequest
	MetricPasswordResetSuccess     = internalmetrics.MetricPasswordResetSuccess
	MetricPasswordResetFailure     = internalmetrics.MetricPasswordResetFailure
	MetricPasswordResetUnsupported = internalmetrics.MetricPasswordResetUnsupported
	MetricGoogleLoginSuccess       = internalmetrics.MetricGoogleLoginSuccess
	MetricGoogleLoginFailure       = internalmetrics.MetricGoogleLoginFailure
	MetricGoogleUserCreated        = internalmetrics.MetricGoogleUserCreated
	MetricProfileRead              = internalmetrics.MetricProfileRead
	MetricProfileUpdated           = internalmetrics.MetricProfileUpdated
	MetricTokenInvalid             = internalmetrics.MetricTokenInvalid
	MetricAccountDisabled          = internalmetrics.MetricAccountDisabled
	MetricMailFailure              = internalmetrics.MetricMailFailure
	MetricRateLimitHit             = internalmetrics.MetricRateLimitHit
	MetricTokenValidateLatency     = internalmetrics.MetricTokenValidateLatency
	MetricOTPVerifyLatency         = internalmetrics.MetricOTPVerifyLatency
	MetricIDCount                  = internalmetrics.MetricIDCount
)

// NewMetrics returns a metric store configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
