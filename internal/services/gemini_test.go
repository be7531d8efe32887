package services

import (
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
)

func TestBuildAnswerPrompt(t *testing.T) {
	prompt := buildAnswerPrompt("What is covered?", []models.Chunk{
		{Content: "Chapter one covers sorting."},
		{Content: "Chapter two covers graphs."},
	})

	assert.True(t, strings.HasPrefix(prompt, "Use the following pieces of context"))
	assert.Contains(t, prompt, "Chapter one covers sorting.\n\nChapter two covers graphs.")
	assert.True(t, strings.HasSuffix(prompt, "Question: What is covered?\nHelpful Answer:"))
}

func TestChatHistory_AlternatesRoles(t *testing.T) {
	got := chatHistory([]models.ChatTurn{
		{Question: "q1", Answer: "a1"},
		{Question: "q2", Answer: "a2"},
	})

	require.Len(t, got, 4)
	roles := []string{got[0].Role, got[1].Role, got[2].Role, got[3].Role}
	assert.Equal(t, []string{"user", "model", "user", "model"}, roles)
	assert.Equal(t, genai.Text("q2"), got[2].Parts[0])
}

func TestExtractText_JoinsTextParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("there")}}},
			{Content: nil},
		},
	}
	assert.Equal(t, "Hello there", extractText(resp))
}
