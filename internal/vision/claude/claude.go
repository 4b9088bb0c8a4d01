package claude

import (
	"context"
	"fmt"
	"io"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/gearlogapp/gearlog/internal/vision"
)

// maxTokens bounds the condition note response; a single "condition | issues"
// line needs far less.
const maxTokens = 256

type Analyzer struct {
	client *anthropic.Client
	model  anthropic.Model
}

func NewAnalyzer(apiKey, model string, opts ...anthropic.ClientOption) *Analyzer {
	return &Analyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  anthropic.Model(model),
	}
}

func (a *Analyzer) Assess(ctx context.Context, r io.Reader, mimeType string) (*vision.ConditionReport, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					imageData,
				)),
				anthropic.NewTextMessageContent(vision.ConditionPrompt),
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	return vision.ParseReport(resp.GetFirstContentText()), nil
}

// normaliseMIME maps MIME types to the values the Anthropic API accepts.
// Condition photos are re-encoded as JPEG upstream, so anything else is
// coerced to the lossy fallback.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
