package upload

import (
	"fmt"

	"go.uber.org/zap"
)

// FaultFunc handles a condition the completion protocol has no code for.
// Implementations must not return; Raise enforces this.
type FaultFunc func(msg string, fields ...zap.Field)

// Raise invokes f and panics should it ever return.
func (f FaultFunc) Raise(msg string, fields ...zap.Field) {
	f(msg, fields...)
	panic("upload: fault handler returned: " + msg)
}

// FatalFault logs at fatal level, terminating the process.
func FatalFault(logger *zap.Logger) FaultFunc {
	return func(msg string, fields ...zap.Field) {
		logger.Fatal(msg, fields...)
	}
}

// Fault is the panic value raised by PanicFault.
type Fault struct {
	Msg    string
	Fields []zap.Field
}

func (f *Fault) Error() string {
	return fmt.Sprintf("upload fault: %s", f.Msg)
}

// PanicFault panics with a *Fault. In-process tasks use it so a fault is
// carried back to the poller rather than ending the host on the task's own
// goroutine.
func PanicFault(msg string, fields ...zap.Field) {
	panic(&Fault{Msg: msg, Fields: fields})
}
