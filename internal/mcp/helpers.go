package mcp

import (
	"context"
	"encoding/json"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// Response is the envelope every tool returns. Guidance tells the calling
// agent what a sensible next step is.
type Response struct {
	Data     any      `json:"data"`
	Warnings []string `json:"warnings,omitempty"`
	Guidance []string `json:"guidance,omitempty"`
}

// WrapResponse builds the tool envelope.
func WrapResponse(data any, warnings, guidance []string) Response {
	return Response{Data: data, Warnings: warnings, Guidance: guidance}
}

func formatResult(data any) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode tool result")
		return `{"error":"result encoding failed"}`
	}
	return string(out)
}

// handlerFunc is the testable shape of a tool handler.
type handlerFunc[In any] func(ctx context.Context, in In) (Response, error)

// adapt turns a handlerFunc into an SDK tool handler that renders the
// envelope as indented JSON text.
func adapt[In any](name string, fn handlerFunc[In]) sdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		start := time.Now()
		res, err := fn(ctx, in)
		if err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			return &sdk.CallToolResult{
				IsError: true,
				Content: []sdk.Content{&sdk.TextContent{Text: err.Error()}},
			}, nil, nil
		}
		log.Debug().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("Tool call completed")
		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: formatResult(res)}},
		}, nil, nil
	}
}
