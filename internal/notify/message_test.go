package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdownFullMessage(t *testing.T) {
	msg := StructuredMessage{
		Icon:  "📈",
		Title: "BTCUSDT signal",
		Sections: []MessageSection{
			{Title: "Signal", Lines: []string{"direction LONG", "strength 0.42"}},
			{Title: "Empty", Lines: []string{"   "}},
		},
		Footer:    "regime trend_down (0.80)",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	out := msg.RenderMarkdown()
	assert.Contains(t, out, "📈 BTCUSDT signal")
	assert.Contains(t, out, "- direction LONG")
	assert.Contains(t, out, "regime trend_down (0.80)")
	assert.Contains(t, out, "time: 2026-08-01 12:00:00 UTC")
	assert.NotContains(t, out, "Empty")
}

func TestRenderMarkdownSanitizesFences(t *testing.T) {
	msg := StructuredMessage{
		Sections: []MessageSection{{Lines: []string{"evil ``` fence"}}},
	}
	assert.Contains(t, msg.RenderMarkdown(), "evil ''' fence")
}

func TestRenderMarkdownTrimsOverlongBody(t *testing.T) {
	msg := StructuredMessage{
		Sections: []MessageSection{{Lines: []string{strings.Repeat("x", 5000)}}},
	}
	out := msg.RenderMarkdown()
	assert.LessOrEqual(t, len(out), maxStructuredMessageLen+3)
	assert.True(t, strings.HasSuffix(out, "..."))
}
