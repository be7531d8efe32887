package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"docchat/internal/models"
)

// maxEmbedBatch is the per-request limit of the batch embedding endpoint.
const maxEmbedBatch = 100

const answerSystemPrompt = "You answer questions about a single uploaded document. " +
	"Use only the provided context. If the context does not contain the answer, say that you don't know. " +
	"Answer in plain text."

type GeminiService struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	docEmbed *genai.EmbeddingModel
	qryEmbed *genai.EmbeddingModel
	logger   *zap.Logger
	rateChan chan struct{} // Token bucket
}

func NewGeminiService(ctx context.Context, apiKey, modelName, embeddingModel string, concurrentReqs int, logger *zap.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.SetMaxOutputTokens(512)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(answerSystemPrompt)}}

	docEmbed := client.EmbeddingModel(embeddingModel)
	docEmbed.TaskType = genai.TaskTypeRetrievalDocument
	qryEmbed := client.EmbeddingModel(embeddingModel)
	qryEmbed.TaskType = genai.TaskTypeRetrievalQuery

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:   client,
		model:    model,
		docEmbed: docEmbed,
		qryEmbed: qryEmbed,
		logger:   logger,
		rateChan: rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// EmbedDocuments embeds chunk texts in batches, preserving input order.
func (s *GeminiService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := min(start+maxEmbedBatch, len(texts))

		batch := s.docEmbed.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}

		if err := s.acquireRate(ctx); err != nil {
			return nil, err
		}
		resp, err := s.docEmbed.BatchEmbedContents(ctx, batch)
		s.releaseRate()
		if err != nil {
			return nil, &UpstreamError{Err: fmt.Errorf("batch embed: %w", err)}
		}
		if len(resp.Embeddings) != end-start {
			return nil, &UpstreamError{Err: fmt.Errorf("batch embed returned %d vectors for %d texts", len(resp.Embeddings), end-start)}
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

func (s *GeminiService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := s.acquireRate(ctx); err != nil {
		return nil, err
	}
	defer s.releaseRate()

	resp, err := s.qryEmbed.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("embed query: %w", err)}
	}
	if resp.Embedding == nil {
		return nil, &UpstreamError{Err: fmt.Errorf("embed query: empty embedding")}
	}
	return resp.Embedding.Values, nil
}

// Answer sends prompt as the next user message after history.
func (s *GeminiService) Answer(ctx context.Context, prompt string, history []models.ChatTurn) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	cs := s.model.StartChat()
	cs.History = chatHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			s.logger.Warn("gemini stopped early",
				zap.Int("candidate", i),
				zap.String("finish_reason", cand.FinishReason.String()),
			)
		}
	}

	answer := strings.TrimSpace(extractText(resp))
	if answer == "" {
		return "", &UpstreamError{Err: fmt.Errorf("empty answer")}
	}
	return answer, nil
}

func chatHistory(turns []models.ChatTurn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns)*2)
	for _, t := range turns {
		out = append(out,
			&genai.Content{Role: "user", Parts: []genai.Part{genai.Text(t.Question)}},
			&genai.Content{Role: "model", Parts: []genai.Part{genai.Text(t.Answer)}},
		)
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// buildAnswerPrompt stuffs the retrieved chunks into a single prompt.
func buildAnswerPrompt(question string, chunks []models.Chunk) string {
	var b strings.Builder
	b.WriteString("Use the following pieces of context to answer the question at the end. ")
	b.WriteString("If you don't know the answer, just say that you don't know, don't try to make up an answer.\n\n")
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(c.Content)
	}
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nHelpful Answer:")
	return b.String()
}
