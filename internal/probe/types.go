package probe

import "context"

// Outcome classifies one probe cycle.
type Outcome int

const (
	NetworkError Outcome = iota
	ServiceDown
	ServiceUpLoginFailed
	ServiceUpLoginSucceeded
)

func (o Outcome) String() string {
	switch o {
	case NetworkError:
		return "network_error"
	case ServiceDown:
		return "service_down"
	case ServiceUpLoginFailed:
		return "login_failed"
	case ServiceUpLoginSucceeded:
		return "login_succeeded"
	default:
		return "unknown"
	}
}

// Verdict records why a login was judged the way it was. Rejected and
// Indeterminate both surface as ServiceUpLoginFailed.
type Verdict string

const (
	VerdictNone          Verdict = ""
	VerdictSucceeded     Verdict = "succeeded"
	VerdictRejected      Verdict = "rejected"
	VerdictIndeterminate Verdict = "indeterminate"
)

// Result holds the outcome of a single probe cycle.
//
// Fields:
//   - StatusCode: status of the last response seen; 0 when the GET never completed.
//   - Err: the transport error behind NetworkError, nil otherwise.
//   - Verdict: only set once the login form was submitted.
type Result struct {
	Outcome    Outcome
	StatusCode int
	Verdict    Verdict
	Err        error
	LatencyMS  float64
}

// Prober runs a probe cycle. A non-nil error means the login POST did not
// complete; see ErrLoginIncomplete.
type Prober interface {
	Probe(ctx context.Context) (Result, error)
}
