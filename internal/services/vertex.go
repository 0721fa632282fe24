package services

import (
	"context"
	"fmt"
	"strings"

	vertexai "cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"supportchat/internal/config"
	"supportchat/internal/persona"
	"supportchat/internal/relay"
)

var (
	vertexCategories = map[string]vertexai.HarmCategory{
		persona.CategoryHateSpeech:       vertexai.HarmCategoryHateSpeech,
		persona.CategoryDangerousContent: vertexai.HarmCategoryDangerousContent,
		persona.CategorySexuallyExplicit: vertexai.HarmCategorySexuallyExplicit,
		persona.CategoryHarassment:       vertexai.HarmCategoryHarassment,
	}
	vertexThresholds = map[string]vertexai.HarmBlockThreshold{
		persona.BlockLowAndAbove:    vertexai.HarmBlockLowAndAbove,
		persona.BlockMediumAndAbove: vertexai.HarmBlockMediumAndAbove,
		persona.BlockOnlyHigh:       vertexai.HarmBlockOnlyHigh,
		persona.BlockNone:           vertexai.HarmBlockNone,
	}
)

// VertexService streams from Gemini on Vertex AI using a service account.
type VertexService struct {
	client *vertexai.Client
	model  *vertexai.GenerativeModel
}

func NewVertexService(ctx context.Context, cfg *config.Config, p *persona.Persona) (*VertexService, error) {
	if cfg.ServiceAccount == nil {
		return nil, fmt.Errorf("vertex provider requires a service account")
	}
	creds, err := google.CredentialsFromJSON(ctx, cfg.ServiceAccount.JSON(), config.CloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("failed to load service account credentials: %w", err)
	}

	client, err := vertexai.NewClient(ctx, cfg.GCPProject, cfg.GCPLocation, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SetMaxOutputTokens(p.MaxOutputTokens)
	model.SetTemperature(p.Temperature)
	model.SetTopP(p.TopP)
	model.SafetySettings = vertexSafetySettings(p.Safety)
	model.SystemInstruction = &vertexai.Content{
		Parts: []vertexai.Part{vertexai.Text(p.SystemInstruction)},
	}

	return &VertexService{client: client, model: model}, nil
}

func (s *VertexService) StreamText(ctx context.Context, prompt string) (relay.FragmentIterator, error) {
	return &vertexFragments{iter: s.model.GenerateContentStream(ctx, vertexai.Text(prompt))}, nil
}

func (s *VertexService) Close() error {
	return s.client.Close()
}

type vertexFragments struct {
	iter *vertexai.GenerateContentResponseIterator
}

func (f *vertexFragments) Next() (string, error) {
	resp, err := f.iter.Next()
	if err != nil {
		return "", err
	}
	return vertexText(resp), nil
}

func vertexSafetySettings(rules []persona.SafetyRule) []*vertexai.SafetySetting {
	settings := make([]*vertexai.SafetySetting, 0, len(rules))
	for _, rule := range rules {
		settings = append(settings, &vertexai.SafetySetting{
			Category:  vertexCategories[rule.Category],
			Threshold: vertexThresholds[rule.Threshold],
		})
	}
	return settings
}

// vertexText joins the text parts of the first candidate.
func vertexText(resp *vertexai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(vertexai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
