// Package safego wraps goroutine launches with panic recovery so a
// failing background task logs and dies alone instead of taking the
// process down.
package safego

import (
	"go.uber.org/zap"
)

// Handle recovers a pending panic and logs it with a stack trace.
// It only has an effect when deferred directly:
//
//	defer safego.Handle(logger, "cve-lookup")
func Handle(logger *zap.Logger, name string) {
	if r := recover(); r != nil {
		logger.Error("Goroutine panicked",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}

// Go runs fn on a new goroutine with Handle deferred, so a panic in fn
// is logged instead of crashing the process.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer Handle(logger, name)
		fn()
	}()
}
