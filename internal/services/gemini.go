package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"supportchat/internal/persona"
	"supportchat/internal/relay"
)

var (
	geminiCategories = map[string]genai.HarmCategory{
		persona.CategoryHateSpeech:       genai.HarmCategoryHateSpeech,
		persona.CategoryDangerousContent: genai.HarmCategoryDangerousContent,
		persona.CategorySexuallyExplicit: genai.HarmCategorySexuallyExplicit,
		persona.CategoryHarassment:       genai.HarmCategoryHarassment,
	}
	geminiThresholds = map[string]genai.HarmBlockThreshold{
		persona.BlockLowAndAbove:    genai.HarmBlockLowAndAbove,
		persona.BlockMediumAndAbove: genai.HarmBlockMediumAndAbove,
		persona.BlockOnlyHigh:       genai.HarmBlockOnlyHigh,
		persona.BlockNone:           genai.HarmBlockNone,
	}
)

// GeminiService streams from the Gemini API with an API key.
type GeminiService struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiService(ctx context.Context, apiKey, modelName string, p *persona.Persona) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetMaxOutputTokens(p.MaxOutputTokens)
	model.SetTemperature(p.Temperature)
	model.SetTopP(p.TopP)
	model.SafetySettings = geminiSafetySettings(p.Safety)
	model.SystemInstruction = genai.NewUserContent(genai.Text(p.SystemInstruction))

	return &GeminiService{client: client, model: model}, nil
}

func (s *GeminiService) StreamText(ctx context.Context, prompt string) (relay.FragmentIterator, error) {
	return &geminiFragments{iter: s.model.GenerateContentStream(ctx, genai.Text(prompt))}, nil
}

func (s *GeminiService) Close() error {
	return s.client.Close()
}

type geminiFragments struct {
	iter *genai.GenerateContentResponseIterator
}

func (f *geminiFragments) Next() (string, error) {
	resp, err := f.iter.Next()
	if err != nil {
		return "", err
	}
	return geminiText(resp), nil
}

func geminiSafetySettings(rules []persona.SafetyRule) []*genai.SafetySetting {
	settings := make([]*genai.SafetySetting, 0, len(rules))
	for _, rule := range rules {
		settings = append(settings, &genai.SafetySetting{
			Category:  geminiCategories[rule.Category],
			Threshold: geminiThresholds[rule.Threshold],
		})
	}
	return settings
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
