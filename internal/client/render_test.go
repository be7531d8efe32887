package client

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_Plain(t *testing.T) {
	r := NewRenderer(true, 0)

	assert.Equal(t, "You: Hello", r.Render(Entry{Origin: OriginUser, Text: "Hello"}))
	assert.Equal(t, "Bot: Hi there", r.Render(Entry{Origin: OriginBot, Text: "Hi there"}))
	assert.Equal(t, "Error: boom", r.Render(Entry{Origin: OriginError, Text: "boom"}))
	assert.Equal(t, "No messages yet.", r.RenderAll(nil))
}

func TestRenderer_RenderAllKeepsOrder(t *testing.T) {
	r := NewRenderer(true, 0)

	out := r.RenderAll([]Entry{
		{Origin: OriginUser, Text: "first"},
		{Origin: OriginBot, Text: "second"},
	})

	assert.Equal(t, "You: first\nBot: second", out)
}

func TestRenderer_Styled(t *testing.T) {
	r := NewRenderer(false, 40)

	out := r.Render(Entry{Origin: OriginBot, Text: "PDF uploaded! You can now ask questions about it."})

	assert.Contains(t, out, "Bot")
	assert.Contains(t, out, "PDF uploaded!")
	assert.Greater(t, strings.Count(out, "\n"), 1, "bubble spans several lines")
}

func TestTranscript_ObserversAndCopy(t *testing.T) {
	tr := NewTranscript()
	var seen []Entry
	tr.Observe(func(e Entry) { seen = append(seen, e) })

	tr.Append(Entry{Origin: OriginUser, Text: "q"})
	tr.Append(Entry{Origin: OriginBot, Text: "a"})

	entries := tr.Entries()
	entries[0].Text = "mutated"

	assert.Equal(t, []Entry{{OriginUser, "q"}, {OriginBot, "a"}}, seen)
	assert.Equal(t, "q", tr.Entries()[0].Text)
	assert.Equal(t, 2, tr.Len())
}
