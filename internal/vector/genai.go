package vector

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ramonehamilton/deckforge/internal/cards"
)

// GenAIEmbedder generates embeddings with Google's Gemini embedding models.
// Cards are embedded from their canonical embedding text.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates a Gemini-backed embedder.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIEmbedder{client: client, model: model}, nil
}

// EmbedCard embeds a card's canonical text with the document task type.
func (e *GenAIEmbedder) EmbedCard(ctx context.Context, card *cards.Card) ([]float32, error) {
	return e.embed(ctx, BuildEmbeddingText(card), "RETRIEVAL_DOCUMENT")
}

// EmbedQuery embeds a free-text query with the query task type.
func (e *GenAIEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.embed(ctx, query, "RETRIEVAL_QUERY")
}

func (e *GenAIEmbedder) embed(ctx context.Context, text string, task string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx,
		e.model,
		contents,
		&genai.EmbedContentConfig{
			TaskType: task,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return result.Embeddings[0].Values, nil
}

// Dimensions returns the vector width of the model.
// gemini-embedding-001 produces 768-dimensional vectors.
func (e *GenAIEmbedder) Dimensions() int {
	return 768
}

// Name identifies the provider and model.
func (e *GenAIEmbedder) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}

// Close closes the GenAI client. The underlying client holds no
// resources that need explicit release.
func (e *GenAIEmbedder) Close() error {
	return nil
}
