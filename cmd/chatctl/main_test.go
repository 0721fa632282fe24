package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"supportchat/internal/handlers"
	"supportchat/internal/relay/relaytest"
)

func runApp(t *testing.T, args ...string) (string, *relaytest.Streamer, error) {
	t.Helper()
	model := &relaytest.Streamer{Fragments: []string{"Sure, ", "here you go."}}
	srv := httptest.NewServer(http.HandlerFunc(handlers.NewChatHandler(model).Relay))
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	full := append([]string{"chatctl"}, args...)
	for i, a := range full {
		if a == "{url}" {
			full[i] = srv.URL
		}
	}
	err := app.Run(full)
	return out.String(), model, err
}

func TestAsk(t *testing.T) {
	out, model, err := runApp(t, "ask", "--url", "{url}", "How", "do", "I", "reset", "my", "password?")
	require.NoError(t, err)
	assert.Equal(t, "Sure, here you go.\n", out)
	assert.Equal(t, []string{"How do I reset my password?"}, model.Prompts())
}

func TestAsk_RequiresQuestion(t *testing.T) {
	_, model, err := runApp(t, "ask", "--url", "{url}")
	assert.Error(t, err)
	assert.Empty(t, model.Prompts())
}

func TestReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"role":"user","content":"first"},{"role":"assistant","content":"ok"},{"role":"user","content":"second"}]`), 0o600))

	out, model, err := runApp(t, "replay", "--url", "{url}", path)
	require.NoError(t, err)
	assert.Equal(t, "Sure, here you go.\n", out)
	assert.Equal(t, []string{"second"}, model.Prompts())
}

func TestReplay_NoUserMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversation.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"role":"assistant","content":"Hi"}]`), 0o600))

	_, model, err := runApp(t, "replay", "--url", "{url}", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No user message found")
	assert.Empty(t, model.Prompts())
}
