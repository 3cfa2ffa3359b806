package llmclient

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v2"
)

// extractCost opportunistically reads a provider-specific "usage.cost"
// field out of a raw completion body. Not every OpenAI-compatible
// endpoint reports cost; a missing or unparseable field yields 0.
func extractCost(raw string) float64 {
	if raw == "" {
		return 0
	}

	var body struct {
		Usage struct {
			Cost float64 `json:"cost"`
		} `json:"usage"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return 0
	}

	return body.Usage.Cost
}

// describeProviderError opportunistically parses an SDK error response,
// which may nest the real payload under error.metadata.raw (as some
// OpenAI-compatible gateways do), and renders a single message carrying
// the provider name, status code, error code, and type.
func describeProviderError(err error) string {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	var body struct {
		Error struct {
			Message  string `json:"message"`
			Type     string `json:"type"`
			Code     string `json:"code"`
			Metadata struct {
				Raw          string `json:"raw"`
				ProviderName string `json:"provider_name"`
			} `json:"metadata"`
		} `json:"error"`
	}

	raw := apiErr.RawJSON()
	if unmarshalErr := json.Unmarshal([]byte(raw), &body); unmarshalErr != nil {
		return fmt.Sprintf("status=%d: %s", apiErr.StatusCode, apiErr.Error())
	}

	msg := body.Error.Message
	provider := body.Error.Metadata.ProviderName
	if body.Error.Metadata.Raw != "" {
		var nested struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
			ProviderName string `json:"provider_name"`
		}
		if json.Unmarshal([]byte(body.Error.Metadata.Raw), &nested) == nil {
			if nested.Error.Message != "" {
				msg = nested.Error.Message
			}
			if provider == "" {
				provider = nested.ProviderName
			}
		}
	}
	if provider == "" {
		provider = "unknown"
	}

	return fmt.Sprintf(
		"provider=%s status=%d code=%s type=%s: %s",
		provider, apiErr.StatusCode, body.Error.Code, body.Error.Type, msg,
	)
}
