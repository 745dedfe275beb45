// services/variation_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/config"
)

var nameVariationsSchema = GenerateSchema[NameVariationsResponse]()

type variationService struct {
	client *openai.Client
}

func NewVariationService(cfg *config.Config) VariationService {
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
	)
	return &variationService{client: &client}
}

// GenerateNameVariations asks for the alternate spellings, abbreviations,
// and product names under which a brand appears in AI responses. The exact
// brand name is always included, and the call degrades to it alone on any
// failure.
func (s *variationService) GenerateNameVariations(ctx context.Context, brandName string, websites []string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Brand name: %s\nWebsites: %s\n\nList the names under which this brand is likely to appear in written answers: "+
			"the official name, common abbreviations, former names, and flagship product names. Keep the list short and factual.",
		brandName, strings.Join(websites, ", "))

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "name_variations",
		Description: openai.String("Name variations under which a brand may appear in text"),
		Schema:      nameVariationsSchema,
		Strict:      openai.Bool(true),
	}

	chatResponse, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a brand analyst. Return only names that genuinely refer to the brand."),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel("gpt-4.1-mini"),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.1),
	})
	if err != nil {
		return []string{brandName}, fmt.Errorf("name variation generation failed: %w", err)
	}
	if len(chatResponse.Choices) == 0 {
		return []string{brandName}, fmt.Errorf("name variation generation returned no choices")
	}

	var parsed NameVariationsResponse
	if err := json.Unmarshal([]byte(chatResponse.Choices[0].Message.Content), &parsed); err != nil {
		// Should never happen with structured outputs
		return []string{brandName}, fmt.Errorf("failed to parse variation response: %w", err)
	}

	variations := []string{brandName}
	seen := map[string]bool{strings.ToLower(brandName): true}
	for _, v := range parsed.Variations {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		variations = append(variations, v)
	}

	log.Debug().
		Str("brand", brandName).
		Strs("variations", variations).
		Msg("Generated brand name variations")

	return variations, nil
}
