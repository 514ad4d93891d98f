package agent

import (
	"context"
	"fmt"

	"dormdesk_backend/platform/ai"
)

// Client generates triage turns through the platform generation client.
type Client struct {
	ai *ai.Client
}

func NewClient(aiClient *ai.Client) *Client {
	return &Client{ai: aiClient}
}

// GenerateTurn runs one conversational turn through the generation service
// and validates the structured result.
func (c *Client) GenerateTurn(ctx context.Context, req TurnRequest) (Response, error) {
	raw, err := c.ai.GenerateJSON(ctx, systemInstruction, BuildContents(req), ResponseSchema())
	if err != nil {
		return Response{}, fmt.Errorf("failed to generate triage turn: %w", err)
	}
	return ParseResponse(raw)
}
