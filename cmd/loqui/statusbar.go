package main

import (
	"fmt"
	"time"

	"github.com/loqui-dev/loqui/pkg/transport"
)

// statusBarModel shows token usage and timing information.
type statusBarModel struct {
	usage    *transport.Tracker
	model    string
	duration time.Duration
}

func newStatusBar(usage *transport.Tracker, model string) statusBarModel {
	return statusBarModel{usage: usage, model: model}
}

func (m statusBarModel) View() string {
	total := m.usage.Total()
	last, hasLast := m.usage.Last()

	var line string
	switch {
	case hasLast && m.duration > 0:
		line = fmt.Sprintf(" %s · last: ↑%s ↓%s · total: ↑%s ↓%s · %s",
			m.model,
			fmtTokens(last.InputTokens),
			fmtTokens(last.OutputTokens),
			fmtTokens(total.InputTokens),
			fmtTokens(total.OutputTokens),
			fmtDuration(m.duration),
		)
	case total.Total() > 0:
		line = fmt.Sprintf(" %s · tokens: ↑%s ↓%s",
			m.model,
			fmtTokens(total.InputTokens),
			fmtTokens(total.OutputTokens),
		)
	default:
		line = " " + m.model
	}

	return statusStyle.Render(line)
}
