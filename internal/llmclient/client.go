package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/wispbit/wisp-review/internal/wisperr"
)

const (
	// DefaultMaxAttempts is the number of times Complete will try a
	// request, including the first attempt, before giving up.
	DefaultMaxAttempts = 3

	backoffBase = 1 * time.Second
	backoffCap  = 10 * time.Second
)

// Client adapts an OpenAI-compatible chat completions endpoint.
type Client struct {
	sdk *openai.Client

	maxAttempts int
	log         *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxAttempts overrides DefaultMaxAttempts.
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithLogger overrides the Client's logger. The default is slog.Default().
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// New returns a Client authenticated with apiKey, optionally pointed at a
// non-default baseURL (for OpenAI-compatible proxies and local endpoints).
func New(apiKey, baseURL string, opts ...ClientOption) *Client {
	sdkOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(baseURL))
	}
	sdk := openai.NewClient(sdkOpts...)

	c := &Client{
		sdk:         &sdk,
		maxAttempts: DefaultMaxAttempts,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Complete issues a chat completion request, retrying transient provider
// errors with exponential backoff (base 1s, doubling, capped at 10s) up to
// maxAttempts times. Cancellation of ctx aborts retries immediately.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	params := buildParams(req)

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			select {
			case <-ctx.Done():
				return Response{}, fmt.Errorf("%w: %v", wisperr.ErrAborted, ctx.Err())
			case <-time.After(delay):
			}
		}

		comp, err := c.sdk.Chat.Completions.New(ctx, params)
		if err == nil {
			return classifyResponse(comp, req.ResponseFormat)
		}

		if ctx.Err() != nil {
			return Response{}, fmt.Errorf("%w: %v", wisperr.ErrAborted, ctx.Err())
		}

		lastErr = fmt.Errorf("%w: %s", wisperr.ErrProvider, describeProviderError(err))
		c.log.Warn("llm completion attempt failed", "attempt", attempt+1, "error", lastErr)
	}

	return Response{}, lastErr
}

// backoffDelay returns the delay before the given retry attempt (1-indexed
// by caller as the loop's attempt counter), doubling from backoffBase and
// capped at backoffCap.
func backoffDelay(attempt int) time.Duration {
	factor := math.Pow(2, float64(attempt-1))
	delay := time.Duration(float64(backoffBase) * factor)
	if delay > backoffCap {
		return backoffCap
	}
	return delay
}

func buildParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(req.Model),
		Messages: adaptMessages(req.Messages),
	}

	if len(req.Tools) > 0 {
		params.Tools = adaptTools(req.Tools)
	}
	if req.ToolChoice != nil {
		params.ToolChoice = adaptToolChoice(*req.ToolChoice)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.ResponseFormat != nil && req.ResponseFormat.JSONSchema != nil {
		params.ResponseFormat = adaptResponseFormat(*req.ResponseFormat)
	}

	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	return params
}

func adaptMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			out = append(out, adaptAssistantMessage(m))
		}
	}
	return out
}

func adaptAssistantMessage(m Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Content)
	}

	var asst openai.ChatCompletionAssistantMessageParam
	if m.Content != "" {
		asst.Content.OfString = openai.String(m.Content)
	}

	for _, tc := range m.ToolCalls {
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func adaptTools(tools []ToolSchema) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  openai.FunctionParameters(t.Parameters),
		}))
	}
	return out
}

func adaptToolChoice(tc ToolChoice) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch tc.Mode {
	case ToolChoiceFunction:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: tc.FunctionName,
				},
			},
		}
	case ToolChoiceRequired:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("required")}
	case ToolChoiceNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("none")}
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
	}
}

func adaptResponseFormat(rf ResponseFormat) openai.ChatCompletionNewParamsResponseFormatUnion {
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   rf.JSONSchemaName,
				Schema: rf.JSONSchema,
			},
		},
	}
}

func classifyResponse(comp *openai.ChatCompletion, rf *ResponseFormat) (Response, error) {
	if len(comp.Choices) == 0 {
		return Response{}, fmt.Errorf("%w: completion returned no choices", wisperr.ErrProvider)
	}

	msg := comp.Choices[0].Message
	cost := extractCost(comp.RawJSON())

	if len(msg.ToolCalls) > 0 {
		var calls []ToolCall
		for _, tc := range msg.ToolCalls {
			fn := tc.AsAny()
			switch v := fn.(type) {
			case openai.ChatCompletionMessageFunctionToolCall:
				calls = append(calls, ToolCall{
					ID:        v.ID,
					Name:      v.Function.Name,
					Arguments: json.RawMessage(v.Function.Arguments),
				})
			}
		}
		return Response{Kind: KindTool, ToolCalls: calls, CostUSD: cost}, nil
	}

	if rf != nil && rf.JSONSchema != nil {
		var structured map[string]any
		if err := json.Unmarshal([]byte(msg.Content), &structured); err == nil {
			return Response{
				Kind:       KindStructured,
				Content:    msg.Content,
				Structured: structured,
				CostUSD:    cost,
			}, nil
		}
	}

	return Response{Kind: KindMessage, Content: msg.Content, CostUSD: cost}, nil
}
