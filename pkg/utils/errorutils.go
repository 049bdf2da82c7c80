package utils

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// WrapIfNotNil prefixes err with the calling function name and any context
// strings. A nil err stays nil.
func WrapIfNotNil(err error, context ...string) error {
	if err == nil {
		return nil
	}

	callerName := "unknown"
	if pc, _, _, ok := runtime.Caller(1); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			callerName = shortFuncName(fn.Name())
		}
	}

	parts := make([]string, 0, 1+len(context))
	parts = append(parts, callerName)
	parts = append(parts, context...)

	return fmt.Errorf("%s: %w", strings.Join(parts, " - "), err)
}

// RootMessage returns the innermost error message, which is what end users see.
func RootMessage(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

// shortFuncName drops the module path, keeping "pkg.Func" or "pkg.(*T).Method".
func shortFuncName(name string) string {
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
