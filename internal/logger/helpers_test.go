package logger

import (
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved() (zapcore.Core, func() []map[string]interface{}) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return core, func() []map[string]interface{} {
		var out []map[string]interface{}
		for _, e := range recorded.All() {
			out = append(out, e.ContextMap())
		}
		return out
	}
}
