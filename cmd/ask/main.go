package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/kirillkom/grounded-assistant/internal/bootstrap"
	"github.com/kirillkom/grounded-assistant/internal/config"
	"github.com/kirillkom/grounded-assistant/internal/core/domain"
	"github.com/kirillkom/grounded-assistant/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand(os.Stdout, openEngine).Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ask:", err)
		os.Exit(1)
	}
}

type asker interface {
	Ask(ctx context.Context, req domain.AskRequest) (*domain.Turn, error)
}

type engineOpener func(ctx context.Context, logLevel string) (asker, func(), error)

// openEngine builds the keyword-only engine from the environment.
func openEngine(ctx context.Context, logLevel string) (asker, func(), error) {
	cfg := config.Load()
	logger := logging.NewLogger(os.Stderr, "ask", logLevel, logging.FormatConsole)
	engine, err := bootstrap.NewEngine(ctx, cfg, bootstrap.Options{Logger: logger, KeywordOnly: true})
	if err != nil {
		return nil, nil, err
	}
	return engine.Orchestrator, engine.Close, nil
}

func newCommand(out io.Writer, open engineOpener) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "answer a question from local text files and the web",
		ArgsUsage: "QUESTION",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Value: string(domain.ChatModeHybrid),
				Usage: "chat mode: document, web or hybrid",
			},
			&cli.StringFlag{
				Name:  "domain",
				Usage: "knowledge domain id, detected from the question when empty",
			},
			&cli.BoolFlag{
				Name:  "web",
				Value: true,
				Usage: "allow the web search fallback",
			},
			&cli.StringSliceFlag{
				Name:  "file",
				Usage: "UTF-8 text file made available as a document (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "turn",
				Usage: "print the whole turn instead of the answer only",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Sources: cli.EnvVars("ASK_LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := cmd.Args().First()
			if text == "" {
				return errors.New("a question is required")
			}
			mode, err := domain.ParseChatMode(cmd.String("mode"))
			if err != nil {
				return err
			}
			docs, err := loadDocuments(cmd.StringSlice("file"))
			if err != nil {
				return err
			}

			engine, closeEngine, err := open(ctx, cmd.String("log-level"))
			if err != nil {
				return err
			}
			defer closeEngine()

			turn, err := engine.Ask(ctx, domain.AskRequest{
				Question: domain.Question{
					Text:             text,
					Domain:           domain.ExplicitDomain(cmd.String("domain")),
					Mode:             mode,
					WebSearchEnabled: cmd.Bool("web"),
				},
				UserID:    localUserID,
				Documents: docs,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if cmd.Bool("turn") {
				return enc.Encode(turn)
			}
			return enc.Encode(turn.Answer)
		},
	}
}
