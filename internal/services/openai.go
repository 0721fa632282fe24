package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/api/iterator"

	"supportchat/internal/persona"
	"supportchat/internal/relay"
)

// OpenAIService streams chat completions from an OpenAI-compatible API.
// Safety thresholds have no equivalent there and are not sent.
type OpenAIService struct {
	client  *openai.Client
	model   string
	persona *persona.Persona
}

func NewOpenAIService(apiKey, model string, p *persona.Persona) *OpenAIService {
	return NewOpenAIServiceWithConfig(openai.DefaultConfig(apiKey), model, p)
}

func NewOpenAIServiceWithConfig(cfg openai.ClientConfig, model string, p *persona.Persona) *OpenAIService {
	return &OpenAIService{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		persona: p,
	}
}

func (s *OpenAIService) StreamText(ctx context.Context, prompt string) (relay.FragmentIterator, error) {
	stream, err := s.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   int(s.persona.MaxOutputTokens),
		Temperature: s.persona.Temperature,
		TopP:        s.persona.TopP,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: s.persona.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	return &openAIFragments{stream: stream}, nil
}

func (s *OpenAIService) Close() error {
	return nil
}

type openAIFragments struct {
	stream *openai.ChatCompletionStream
}

func (f *openAIFragments) Next() (string, error) {
	resp, err := f.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", iterator.Done
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (f *openAIFragments) Close() error {
	return f.stream.Close()
}
