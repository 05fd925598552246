package errors

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

const InvalidArgumentCode = 400

// Error is the error surface returned by the public constructors of
// this module. It extends the built-in error interface with the
// severity and origin of the failure.
type Error interface {
	error
	Fatal() bool
	Temporary() bool
	Code() int
	Reason() string
	Caller() string
	Log()
}

// InvalidArgument signals a construction-time parameter validation
// failure. These are fail-fast and non-recoverable.
func InvalidArgument(reason string, caller string) Error {
	return &genericErr{
		fatal:     true,
		temporary: false,
		code:      InvalidArgumentCode,
		reason:    reason,
		caller:    caller,
	}
}

type genericErr struct {
	fatal     bool
	temporary bool
	code      int
	reason    string
	caller    string
}

func (err *genericErr) Error() string {
	return fmt.Sprintf("[%s] %s", err.caller, err.reason)
}

func (err *genericErr) Log() {
	log.Errorf("[%s]: Error type: %d, Reason: %s", err.Caller(), err.Code(), err.Reason())
}

func (err *genericErr) Fatal() bool {
	return err.fatal
}

func (err *genericErr) Temporary() bool {
	return err.temporary
}

func (err *genericErr) Code() int {
	return err.code
}

func (err *genericErr) Caller() string {
	return err.caller
}

func (err *genericErr) Reason() string {
	return err.reason
}
