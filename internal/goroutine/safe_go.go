package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/ignatzorin/homecare-backend/internal/logger"
)

// SafeGo запускает горутину с перехватом panic: сбой логируется
// вместе со стеком, процесс продолжает работу.
func SafeGo(fn func()) {
	go func() {
		defer logPanic("goroutine")
		fn()
	}()
}

// SafeGoWithContext запускает горутину с контекстом и перехватом panic.
func SafeGoWithContext(ctx context.Context, fn func(context.Context)) {
	go func() {
		defer logPanic("goroutine with context")
		fn(ctx)
	}()
}

func logPanic(scope string) {
	r := recover()
	if r == nil {
		return
	}
	if logger.Log != nil {
		logger.Log.WithFields(map[string]interface{}{
			"panic": fmt.Sprintf("%v", r),
			"stack": string(debug.Stack()),
		}).Error("panic в " + scope)
		return
	}
	fmt.Printf("[ERROR] panic в %s: %v\n%s\n", scope, r, debug.Stack())
}
