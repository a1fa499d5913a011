package bot

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/risk"
)

// ErrEmergencyStop is returned by Run after the emergency threshold fired
// and every position was closed.
var ErrEmergencyStop = risk.ErrEmergencyStop

// Kind classifies what the loop does with a failure.
type Kind int

const (
	// KindDataUnavailable skips the tick: missing account, quote or bars.
	KindDataUnavailable Kind = iota + 1
	// KindValidation skips the signal.
	KindValidation
	// KindBrokerRejected skips the signal; rejected orders are never retried.
	KindBrokerRejected
	// KindConnectivity triggers the bounded reconnect.
	KindConnectivity
	// KindEmergency closes everything and stops the loop.
	KindEmergency
)

var kindNames = map[Kind]string{
	KindDataUnavailable: "data unavailable",
	KindValidation:      "validation",
	KindBrokerRejected:  "broker rejected",
	KindConnectivity:    "connectivity",
	KindEmergency:       "emergency",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// brokerError classifies a broker call failure: a dropped terminal is a
// connectivity problem, anything else means the data is not there.
func brokerError(op string, err error) error {
	if errors.Is(err, broker.ErrNotConnected) {
		return newError(KindConnectivity, op, err)
	}
	return newError(KindDataUnavailable, op, err)
}

// KindOf reports the kind of err. Unclassified errors count as missing
// data, and a bare risk.ErrEmergencyStop as an emergency.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, risk.ErrEmergencyStop) {
		return KindEmergency
	}
	return KindDataUnavailable
}
