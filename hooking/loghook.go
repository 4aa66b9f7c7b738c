package hooking

import (
	"fmt"
	"log"
	"strings"
)

// A LogHook is a hook that writes one line to a logger every time it is
// invoked. If positions are given, only those positions are logged.
type LogHook struct {
	*log.Logger

	positions map[*HookPos]bool
}

// NewLogHook creates a LogHook that writes to the given logger.
func NewLogHook(logger *log.Logger, positions ...*HookPos) *LogHook {
	h := &LogHook{
		Logger:    logger,
		positions: make(map[*HookPos]bool),
	}

	for _, p := range positions {
		h.positions[p] = true
	}

	return h
}

// Func writes the hook site to the logger.
func (h *LogHook) Func(ctx HookCtx) {
	if len(h.positions) > 0 && !h.positions[ctx.Pos] {
		return
	}

	var b strings.Builder

	b.WriteString(ctx.Pos.Name)

	if ctx.Item != nil {
		b.WriteString(" ")
		b.WriteString(describe(ctx.Item))
	}

	if ctx.Detail != nil {
		b.WriteString(" ")
		b.WriteString(describe(ctx.Detail))
	}

	h.Print(b.String())
}

func describe(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}

	return fmt.Sprintf("%+v", v)
}
