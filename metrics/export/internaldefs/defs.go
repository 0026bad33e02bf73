package internaldefs

import (
	"github.com/MrEthical07/authengine"
)

// Label is one attribute of a series.
type Label struct {
	Key   string
	Value string
}

// Series binds an engine counter to the labels it is published under.
type Series struct {
	ID     authengine.MetricID
	Labels []Label
}

// CounterFamily is one exported counter whose series are engine counters
// told apart by labels.
type CounterFamily struct {
	Name   string
	Help   string
	Series []Series
}

type HistogramDef struct {
	ID   authengine.MetricID
	Name string
	Help string
}

func series(id authengine.MetricID, kv ...string) Series {
	s := Series{ID: id}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Labels = append(s.Labels, Label{Key: kv[i], Value: kv[i+1]})
	}
	return s
}

var CounterFamilies = []CounterFamily{
	{
		Name: "authengine_authentications_total",
		Help: "Authenticate calls by outcome.",
		Series: []Series{
			series(authengine.MetricAuthenticateSuccess, "outcome", "succeeded"),
			series(authengine.MetricAuthenticateFailure, "outcome", "failed"),
			series(authengine.MetricMFARequired, "outcome", "mfa_pending"),
			series(authengine.MetricConcurrentAttempt, "outcome", "concurrent_attempt"),
		},
	},
	{
		Name: "authengine_factor_checks_total",
		Help: "Authentication factor checks by factor and result.",
		Series: []Series{
			series(authengine.MetricPasswordMismatch, "factor", "password", "result", "rejected"),
			series(authengine.MetricTOTPSuccess, "factor", "totp", "result", "accepted"),
			series(authengine.MetricTOTPFailure, "factor", "totp", "result", "rejected"),
			series(authengine.MetricRecaptchaRequired, "factor", "recaptcha", "result", "required"),
			series(authengine.MetricRecaptchaFailure, "factor", "recaptcha", "result", "rejected"),
			series(authengine.MetricChallengeIssued, "factor", "challenge", "result", "issued"),
			series(authengine.MetricChallengeFailure, "factor", "challenge", "result", "rejected"),
		},
	},
	{
		Name: "authengine_account_transitions_total",
		Help: "Account status changes by transition.",
		Series: []Series{
			series(authengine.MetricLockout, "transition", "locked_out"),
			series(authengine.MetricAccountDisabled, "transition", "disabled"),
			series(authengine.MetricAccountEnabled, "transition", "enabled"),
			series(authengine.MetricAccountActivated, "transition", "activated"),
		},
	},
	{
		Name: "authengine_session_events_total",
		Help: "Issued-session events.",
		Series: []Series{
			series(authengine.MetricNewDevice, "event", "new_device"),
			series(authengine.MetricLogout, "event", "logout"),
			series(authengine.MetricLogoutAll, "event", "logout_all"),
		},
	},
	{
		Name: "authengine_registrations_total",
		Help: "Registration sagas by result.",
		Series: []Series{
			series(authengine.MetricRegistrationSuccess, "result", "completed"),
			series(authengine.MetricRegistrationRollback, "result", "rolled_back"),
		},
	},
	{
		Name: "authengine_password_events_total",
		Help: "Password changes and forgot-password workflow steps.",
		Series: []Series{
			series(authengine.MetricPasswordChanged, "event", "changed"),
			series(authengine.MetricForgotPasswordRequest, "event", "forgot_requested"),
			series(authengine.MetricForgotPasswordCompleted, "event", "forgot_completed"),
		},
	},
	{
		Name: "authengine_scheduled_tasks_total",
		Help: "Scheduled tasks handled by result.",
		Series: []Series{
			series(authengine.MetricScheduledTaskRun, "result", "succeeded"),
			series(authengine.MetricScheduledTaskFailure, "result", "failed"),
		},
	},
}

var HistogramDefs = []HistogramDef{
	{ID: authengine.MetricAuthenticateLatency, Name: "authengine_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets,
// published as the "le" label.
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

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
