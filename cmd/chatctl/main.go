package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"supportchat/internal/client"
)

var urlFlag = &cli.StringFlag{
	Name:    "url",
	Usage:   "base URL of the support chat relay",
	Value:   "http://localhost:8080",
	EnvVars: []string{"CHATCTL_URL"},
}

var askCommand = &cli.Command{
	Name:      "ask",
	Usage:     "Ask a single question and stream the answer to stdout",
	ArgsUsage: "QUESTION...",
	Flags:     []cli.Flag{urlFlag},
	Action: func(ctx *cli.Context) error {
		question := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
		if question == "" {
			return cli.Exit("a question is required", 2)
		}
		c := client.New(ctx.String("url"), nil)
		_, err := c.Ask(ctx.Context, question, ctx.App.Writer)
		fmt.Fprintln(ctx.App.Writer)
		return err
	},
}

var replayCommand = &cli.Command{
	Name:  "replay",
	Usage: "Send a JSON conversation file and stream the answer to stdout",
	Description: `The file holds a JSON array of {"role": "...", "content": "..."} objects.
				Only the last user message is answered. Use - to read from stdin.`,
	ArgsUsage: "FILE",
	Flags:     []cli.Flag{urlFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return cli.Exit("exactly one conversation file is required", 2)
		}

		var r io.Reader = os.Stdin
		if path := ctx.Args().First(); path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		msgs, err := client.ReadConversation(r)
		if err != nil {
			return err
		}
		c := client.New(ctx.String("url"), nil)
		_, err = c.Stream(ctx.Context, msgs, ctx.App.Writer)
		fmt.Fprintln(ctx.App.Writer)
		return err
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "chatctl",
		Usage:    "Talk to a support chat relay from the command line",
		Commands: []*cli.Command{askCommand, replayCommand},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
