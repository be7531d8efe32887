package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"docchat/internal/client"
	"docchat/internal/config"
	"docchat/internal/models"
)

const askConcurrency = 4

type app struct {
	cfg      *config.ClientConfig
	api      *client.APIClient
	session  *client.Session
	renderer *client.Renderer
	out      io.Writer
	logger   *zap.Logger
}

func newApp(cfg *config.ClientConfig, out io.Writer, logger *zap.Logger) *app {
	api := client.NewAPIClient(cfg.ServerURL, cfg.Timeout, logger)
	a := &app{
		cfg:      cfg,
		api:      api,
		session:  client.NewSession(api, logger),
		renderer: client.NewRenderer(cfg.NoColor, 80),
		out:      out,
		logger:   logger,
	}
	a.session.Transcript.Observe(func(e client.Entry) {
		fmt.Fprintln(a.out, a.renderer.Render(e))
	})
	return a
}

func (a *app) upload(ctx context.Context, path string) error {
	a.session.Select(client.FileUpload(path))
	return a.session.HandleUpload(ctx)
}

func (a *app) ask(ctx context.Context, question string) error {
	a.session.Composer.Set(question)
	return a.session.Submit(ctx)
}

func (a *app) askEach(ctx context.Context, questions []string) error {
	answers, err := a.api.AskAll(ctx, questions, askConcurrency)
	if err != nil {
		a.session.Transcript.Append(client.Entry{Origin: client.OriginError, Text: err.Error()})
		return err
	}
	for i, q := range questions {
		a.session.Transcript.Append(client.Entry{Origin: client.OriginUser, Text: q})
		a.session.Transcript.Append(client.Entry{Origin: client.OriginBot, Text: answers[i]})
	}
	return nil
}

func (a *app) repl(ctx context.Context, in io.Reader) error {
	if a.cfg.Watch {
		go func() {
			err := a.api.Watch(ctx, func(u models.StatusUpdate) {
				fmt.Fprintln(a.out, a.renderer.Hint(statusLine(u)))
			})
			if err != nil {
				a.logger.Warn("status stream closed", zap.Error(err))
			}
		}()
	}

	fmt.Fprintln(a.out, a.renderer.Hint("Connected to "+a.cfg.ServerURL+". Type a question, /upload <path>, /doc, /history or /quit."))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(a.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(a.out)
			return scanner.Err()
		}
		if quit := a.dispatch(ctx, scanner.Text()); quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// dispatch runs one REPL line and reports whether the session should end.
// Failures are already in the transcript so they are not returned.
func (a *app) dispatch(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		a.ask(ctx, line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/upload":
		if arg == "" {
			// No selection: nothing is sent.
			a.session.Select(nil)
			err := a.session.HandleUpload(ctx)
			if errors.Is(err, client.ErrNoFile) {
				fmt.Fprintln(a.out, a.renderer.Hint("usage: /upload <path>"))
			}
			return false
		}
		a.upload(ctx, arg)
	case "/doc":
		doc, err := a.api.ActiveDocument(ctx)
		if err != nil {
			fmt.Fprintln(a.out, a.renderer.Render(client.Entry{Origin: client.OriginError, Text: err.Error()}))
			return false
		}
		fmt.Fprintln(a.out, a.renderer.Hint(documentLine(doc)))
	case "/history":
		fmt.Fprintln(a.out, a.renderer.RenderAll(a.session.Transcript.Entries()))
	case "/help":
		fmt.Fprintln(a.out, a.renderer.Hint("/upload <path>  /doc  /history  /quit"))
	default:
		fmt.Fprintln(a.out, a.renderer.Hint("unknown command "+cmd))
	}
	return false
}

func documentLine(doc *models.Document) string {
	line := fmt.Sprintf("%s  status=%s  chunks=%d", doc.Filename, doc.Status, doc.ChunkCount)
	if doc.ErrorMessage != nil && *doc.ErrorMessage != "" {
		line += "  error=" + *doc.ErrorMessage
	}
	return line
}

func statusLine(u models.StatusUpdate) string {
	line := fmt.Sprintf("document %s is %s", u.DocumentID, u.Status)
	if u.Chunks > 0 {
		line += fmt.Sprintf(" (%d chunks)", u.Chunks)
	}
	if u.Error != "" {
		line += ": " + u.Error
	}
	return line
}
