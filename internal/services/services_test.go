package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	vertexai "cloud.google.com/go/vertexai/genai"
	"github.com/google/generative-ai-go/genai"
	jsoniter "github.com/json-iterator/go"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"

	"supportchat/internal/config"
	"supportchat/internal/persona"
)

func defaultPersona(t *testing.T) *persona.Persona {
	t.Helper()
	p, err := persona.Default()
	require.NoError(t, err)
	return p
}

func TestVertexSafetySettings(t *testing.T) {
	settings := vertexSafetySettings(defaultPersona(t).Safety)
	require.Len(t, settings, 4)

	got := map[vertexai.HarmCategory]vertexai.HarmBlockThreshold{}
	for _, s := range settings {
		got[s.Category] = s.Threshold
	}
	assert.Equal(t, map[vertexai.HarmCategory]vertexai.HarmBlockThreshold{
		vertexai.HarmCategoryHateSpeech:       vertexai.HarmBlockMediumAndAbove,
		vertexai.HarmCategoryDangerousContent: vertexai.HarmBlockMediumAndAbove,
		vertexai.HarmCategorySexuallyExplicit: vertexai.HarmBlockMediumAndAbove,
		vertexai.HarmCategoryHarassment:       vertexai.HarmBlockMediumAndAbove,
	}, got)
}

func TestGeminiSafetySettings(t *testing.T) {
	settings := geminiSafetySettings([]persona.SafetyRule{
		{Category: persona.CategoryHarassment, Threshold: persona.BlockOnlyHigh},
		{Category: persona.CategoryHateSpeech, Threshold: persona.BlockNone},
	})
	require.Len(t, settings, 2)
	assert.Equal(t, genai.HarmCategoryHarassment, settings[0].Category)
	assert.Equal(t, genai.HarmBlockOnlyHigh, settings[0].Threshold)
	assert.Equal(t, genai.HarmCategoryHateSpeech, settings[1].Category)
	assert.Equal(t, genai.HarmBlockNone, settings[1].Threshold)
}

func TestVertexText(t *testing.T) {
	resp := &vertexai.GenerateContentResponse{
		Candidates: []*vertexai.Candidate{
			{Content: &vertexai.Content{Parts: []vertexai.Part{vertexai.Text("You can "), vertexai.Text("reschedule.")}}},
			{Content: &vertexai.Content{Parts: []vertexai.Part{vertexai.Text("ignored")}}},
		},
	}
	assert.Equal(t, "You can reschedule.", vertexText(resp))
	assert.Empty(t, vertexText(&vertexai.GenerateContentResponse{}))
	assert.Empty(t, vertexText(&vertexai.GenerateContentResponse{Candidates: []*vertexai.Candidate{{}}}))
	assert.Empty(t, vertexText(nil))
}

func TestGeminiText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello"), genai.Blob{MIMEType: "image/png"}, genai.Text("!")}}},
		},
	}
	assert.Equal(t, "Hello!", geminiText(resp))
	assert.Empty(t, geminiText(&genai.GenerateContentResponse{}))
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), &config.Config{ModelProvider: "llama"}, defaultPersona(t))
	assert.Error(t, err)
}

func TestNewVertexService_RequiresServiceAccount(t *testing.T) {
	_, err := NewVertexService(context.Background(), &config.Config{ModelProvider: config.ProviderVertex}, defaultPersona(t))
	assert.Error(t, err)
}

// sseServer answers chat completion requests with the given deltas as a
// server-sent event stream and records the decoded request.
type sseServer struct {
	deltas []string

	mu       sync.Mutex
	requests []openai.ChatCompletionRequest
}

func (s *sseServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := jsoniter.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	for _, d := range s.deltas {
		chunk := openai.ChatCompletionStreamResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion.chunk",
			Model:  req.Model,
			Choices: []openai.ChatCompletionStreamChoice{
				{Index: 0, Delta: openai.ChatCompletionStreamChoiceDelta{Content: d}},
			},
		}
		data, _ := jsoniter.Marshal(chunk)
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	io.WriteString(w, "data: [DONE]\n\n")
}

func TestOpenAIService_StreamText(t *testing.T) {
	upstream := &sseServer{deltas: []string{"Interviews ", "can be ", "rescheduled."}}
	srv := httptest.NewServer(upstream)
	defer srv.Close()

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	p := defaultPersona(t)
	svc := NewOpenAIServiceWithConfig(cfg, "gpt-4o-mini", p)

	it, err := svc.StreamText(context.Background(), "How do I reschedule?")
	require.NoError(t, err)

	var out strings.Builder
	for {
		text, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		require.NoError(t, err)
		out.WriteString(text)
	}
	require.NoError(t, it.(io.Closer).Close())
	assert.Equal(t, "Interviews can be rescheduled.", out.String())

	require.Len(t, upstream.requests, 1)
	req := upstream.requests[0]
	assert.True(t, req.Stream)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	assert.Equal(t, 8192, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, p.SystemInstruction, req.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, req.Messages[1].Role)
	assert.Equal(t, "How do I reschedule?", req.Messages[1].Content)
}

func TestOpenAIService_OpenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("bad")
	cfg.BaseURL = srv.URL + "/v1"
	svc := NewOpenAIServiceWithConfig(cfg, "gpt-4o-mini", defaultPersona(t))

	_, err := svc.StreamText(context.Background(), "hi")
	assert.Error(t, err)
}
