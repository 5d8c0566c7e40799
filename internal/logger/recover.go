package logger

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrPanic = errors.New("recovered panic")

// RecoverPanic must be deferred directly. It logs a panic of the current
// goroutine with its stack and hands it to onPanic as an error.
func RecoverPanic(base *zap.Logger, goroutine string, onPanic func(error)) {
	r := recover()
	if r == nil {
		return
	}
	base.Error("Goroutine panic recovered",
		zap.String("goroutine", goroutine),
		zap.Any("panic", r),
		zap.Stack("stack"))
	if onPanic != nil {
		onPanic(fmt.Errorf("%w in %s: %v", ErrPanic, goroutine, r))
	}
}
