package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/docchat/internal/api"
	"github.com/diogo/docchat/internal/config"
	apierrors "github.com/diogo/docchat/internal/errors"
	"github.com/diogo/docchat/internal/models"
	"github.com/diogo/docchat/internal/session"
	"github.com/diogo/docchat/internal/stream"
	"github.com/diogo/docchat/internal/tui"
)

// fakeTUI records RunChat calls instead of taking over the terminal
type fakeTUI struct {
	called bool
	opts   tui.Options
	client api.ClientInterface
	err    error
}

func (f *fakeTUI) RunChat(ctx context.Context, client api.ClientInterface, opts tui.Options) error {
	f.called = true
	f.client = client
	f.opts = opts
	return f.err
}

// harness wires Dependencies to in-memory fakes
type harness struct {
	deps   *Dependencies
	client *api.MockClient
	tui    *fakeTUI
	stdout *syncBuffer
	stderr *syncBuffer
	tty    bool
	cfg    config.Config
	saved  *config.Config
	copied []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	h := &harness{
		client: &api.MockClient{HealthVal: &models.HealthStatus{OK: true, Status: "ready"}},
		tui:    &fakeTUI{},
		stdout: &syncBuffer{},
		stderr: &syncBuffer{},
	}
	h.deps = &Dependencies{
		NewClient: func(cfg config.Config) (api.ClientInterface, error) {
			h.cfg = cfg
			return h.client, nil
		},
		LoadConfig:     func() (config.Config, error) { return config.DefaultConfig(), nil },
		LoadConfigFile: func() (config.Config, error) { return config.DefaultConfig(), nil },
		SaveConfig: func(cfg config.Config) error {
			h.saved = &cfg
			return nil
		},
		TUI:           h.tui,
		Stdout:        h.stdout,
		Stderr:        h.stderr,
		IsTTY:         func() bool { return h.tty },
		TerminalWidth: func() int { return 80 },
		CopyText: func(text string) error {
			h.copied = append(h.copied, text)
			return nil
		},
	}
	return h
}

func (h *harness) run(args ...string) error {
	cmd := NewRootCmd(h.deps)
	cmd.SetArgs(args)
	cmd.SetOut(h.stdout)
	cmd.SetErr(h.stderr)
	return cmd.ExecuteContext(context.Background())
}

func TestRootCmd(t *testing.T) {
	cmd := NewRootCmd(newHarness(t).deps)

	if cmd.Use != "docchat [question]" {
		t.Errorf("Expected use 'docchat [question]', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("descriptions should not be empty")
	}
	if cmd.Args == nil {
		t.Error("Args validation should be configured")
	}

	for _, name := range []string{"server", "session", "no-stream", "verbose", "log-level"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("persistent flag %s not found", name)
		}
	}
	for _, name := range []string{"output", "file", "raw", "copy", "version"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("flag %s not found", name)
		}
	}

	for _, sub := range []string{"chat", "config", "status", "kb", "reindex"} {
		found := false
		for _, c := range cmd.Commands() {
			if c.Name() == sub {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Subcommand %s not found", sub)
		}
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	for _, flag := range []string{"-v", "--version"} {
		t.Run(flag, func(t *testing.T) {
			h := newHarness(t)
			if err := h.run(flag); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			if !strings.Contains(h.stdout.String(), "docchat "+Version) {
				t.Errorf("stdout = %q, want version", h.stdout.String())
			}
		})
	}
}

func TestRootCmd_NoInputShowsHelp(t *testing.T) {
	h := newHarness(t)
	if err := h.run(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "Usage") {
		t.Errorf("expected help output, got %q", h.stdout.String())
	}
	if len(h.client.Calls()) != 0 {
		t.Error("no request should be sent without input")
	}
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	h := newHarness(t)
	if err := h.run("one", "two"); err == nil {
		t.Error("expected error for two positional arguments")
	}
}

func TestQuery_StreamsWhenPiped(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{
		stream.SessionAssigned("abc"),
		stream.Delta("Les congés "),
		stream.Delta("sont de 25 jours."),
	}

	if err := h.run("Combien de jours de congé ?"); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if got := h.stdout.String(); got != "Les congés sont de 25 jours." {
		t.Errorf("stdout = %q", got)
	}
	calls := h.client.Calls()
	if len(calls) != 1 || calls[0].Message != "Combien de jours de congé ?" || calls[0].SessionID != "" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestQuery_RawOnTerminalEndsWithNewline(t *testing.T) {
	h := newHarness(t)
	h.tty = true
	h.client.StreamEvents = []stream.Event{stream.Delta("ok")}

	if err := h.run("--raw", "q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got := h.stdout.String(); got != "ok\n" {
		t.Errorf("stdout = %q, want %q", got, "ok\n")
	}
}

func TestQuery_DecoratedOutput(t *testing.T) {
	h := newHarness(t)
	h.tty = true
	h.client.StreamEvents = []stream.Event{stream.Delta("Les **congés** payés")}

	if err := h.run("q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	out := h.stdout.String()
	if !strings.Contains(out, "Assistant") {
		t.Errorf("expected assistant label, got %q", out)
	}
	if !strings.Contains(out, "congés") {
		t.Errorf("expected reply text, got %q", out)
	}
	if strings.Contains(out, "**congés**") {
		t.Error("reply should be rendered as markdown")
	}
	if !strings.Contains(h.stderr.String(), "Done") {
		t.Errorf("expected spinner success on stderr, got %q", h.stderr.String())
	}
}

func TestQuery_SessionFlagAndVerbose(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.SessionAssigned("web_1"), stream.Delta("ok")}

	if err := h.run("--session", "web_1", "--verbose", "q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	calls := h.client.Calls()
	if len(calls) != 1 || calls[0].SessionID != "web_1" {
		t.Errorf("calls = %+v, want session web_1", calls)
	}
	if !strings.Contains(h.stderr.String(), "[verbose] Session: web_1") {
		t.Errorf("stderr = %q, want session id", h.stderr.String())
	}
}

func TestQuery_NoStreamUsesChatEndpoint(t *testing.T) {
	h := newHarness(t)
	h.client.ChatReplyVal = &models.ChatReply{Reply: "réponse complète", SessionID: "s1"}

	if err := h.run("--no-stream", "q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if got := h.stdout.String(); got != "réponse complète" {
		t.Errorf("stdout = %q", got)
	}
	if len(h.client.ChatCalls) != 1 || len(h.client.StreamCalls) != 0 {
		t.Errorf("chat calls = %d, stream calls = %d", len(h.client.ChatCalls), len(h.client.StreamCalls))
	}
	if h.cfg.Stream {
		t.Error("--no-stream should disable streaming in the resolved config")
	}
}

func TestQuery_ServerFlag(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("ok")}

	if err := h.run("--server", "http://kb.local:9000", "q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if h.cfg.ServerURL != "http://kb.local:9000" {
		t.Errorf("ServerURL = %q", h.cfg.ServerURL)
	}
}

func TestQuery_EmptyStreamUsesFallback(t *testing.T) {
	h := newHarness(t)

	if err := h.run("Bonjour"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got := h.stdout.String(); got != models.FallbackReplyFR {
		t.Errorf("stdout = %q, want French fallback", got)
	}
}

func TestQuery_StreamError(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("Un mo"), stream.Failure("upstream timeout")}

	err := h.run("q")
	if err == nil {
		t.Fatal("expected error")
	}
	var done *reportedError
	if !errors.As(err, &done) {
		t.Errorf("error should be marked as reported, got %T", err)
	}
	if !apierrors.IsStreamError(err) {
		t.Errorf("error should wrap the stream error, got %v", err)
	}
	if got := h.stdout.String(); got != "Un mo\n" {
		t.Errorf("stdout = %q, want partial text", got)
	}
	if !strings.Contains(h.stderr.String(), "upstream timeout") {
		t.Errorf("stderr = %q, want error message", h.stderr.String())
	}
}

func TestQuery_StreamErrorOnTerminalShowsPartial(t *testing.T) {
	h := newHarness(t)
	h.tty = true
	h.client.StreamEvents = []stream.Event{stream.Delta("Un mo"), stream.Failure("upstream timeout")}

	if err := h.run("q"); err == nil {
		t.Fatal("expected error")
	}
	stderr := h.stderr.String()
	if !strings.Contains(stderr, "upstream timeout") {
		t.Errorf("stderr = %q, want error message", stderr)
	}
	if !strings.Contains(stderr, "Un mo") {
		t.Errorf("stderr = %q, want the partial answer", stderr)
	}
	if h.stdout.String() != "" {
		t.Errorf("stdout should be empty, got %q", h.stdout.String())
	}
}

func TestQuery_TransportError(t *testing.T) {
	h := newHarness(t)
	h.client.StreamErr = apierrors.NewTransportError(502, models.PathChatStream)

	if err := h.run("q"); err == nil {
		t.Fatal("expected error")
	}
	stderr := h.stderr.String()
	if !strings.Contains(stderr, models.GenericErrorMessage) {
		t.Errorf("stderr = %q, want generic message", stderr)
	}
	if !strings.Contains(stderr, "HTTP Status: 502") {
		t.Errorf("stderr = %q, want status", stderr)
	}
	if h.stdout.String() != "" {
		t.Errorf("stdout should be empty, got %q", h.stdout.String())
	}
}

func TestQuery_OutputToFile(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("# Titre\n\ncontenu")}
	outputFile := filepath.Join(t.TempDir(), "reply.md")

	if err := h.run("-o", outputFile, "q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != "# Titre\n\ncontenu" {
		t.Errorf("file = %q", string(data))
	}
	if h.stdout.String() != "" {
		t.Errorf("stdout should be empty when saving to a file, got %q", h.stdout.String())
	}
}

func TestQuery_InvalidOutputFile(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("x")}

	err := h.run("-o", filepath.Join(t.TempDir(), "missing", "dir", "reply.md"), "q")
	if err == nil || !strings.Contains(err.Error(), "failed to write output file") {
		t.Errorf("err = %v, want write failure", err)
	}
}

func TestQuery_CopyToClipboard(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("**réponse**")}

	if err := h.run("--copy", "q"); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(h.copied) != 1 || h.copied[0] != "**réponse**" {
		t.Errorf("copied = %q", h.copied)
	}
}

func TestQuery_CopyFailureOnlyWarns(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("ok")}
	h.deps.CopyText = func(string) error { return errors.New("no clipboard") }

	if err := h.run("--copy", "q"); err != nil {
		t.Fatalf("copy failure should not fail the query: %v", err)
	}
	if !strings.Contains(h.stderr.String(), "Failed to copy") {
		t.Errorf("stderr = %q, want warning", h.stderr.String())
	}
}

func TestQuery_FileInput(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("ok")}
	promptFile := filepath.Join(t.TempDir(), "question.md")
	if err := os.WriteFile(promptFile, []byte("  Question depuis un fichier \n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := h.run("-f", promptFile); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	calls := h.client.Calls()
	if len(calls) != 1 || calls[0].Message != "Question depuis un fichier" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestQuery_MissingFile(t *testing.T) {
	h := newHarness(t)
	err := h.run("-f", filepath.Join(t.TempDir(), "nope.md"))
	if err == nil || !strings.Contains(err.Error(), "failed to read file") {
		t.Errorf("err = %v, want read failure", err)
	}
}

func TestQuery_StdinInput(t *testing.T) {
	h := newHarness(t)
	h.client.StreamEvents = []stream.Event{stream.Delta("ok")}

	stdin, err := os.CreateTemp(t.TempDir(), "stdin")
	if err != nil {
		t.Fatal(err)
	}
	defer stdin.Close()
	if _, err := stdin.WriteString("Question depuis stdin"); err != nil {
		t.Fatal(err)
	}
	if _, err := stdin.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	h.deps.Stdin = stdin

	if err := h.run(); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	calls := h.client.Calls()
	if len(calls) != 1 || calls[0].Message != "Question depuis stdin" {
		t.Errorf("calls = %+v", calls)
	}
}

func TestQuery_EmptyPrompt(t *testing.T) {
	h := newHarness(t)

	err := h.run("   ")
	if err == nil || !strings.Contains(err.Error(), "prompt cannot be empty") {
		t.Errorf("err = %v, want empty prompt error", err)
	}
	if len(h.client.Calls()) != 0 {
		t.Error("empty prompt should not reach the server")
	}
}

func TestQuery_ClientCreationError(t *testing.T) {
	h := newHarness(t)
	h.deps.NewClient = func(config.Config) (api.ClientInterface, error) {
		return nil, errors.New("bad url")
	}

	err := h.run("q")
	if err == nil || !strings.Contains(err.Error(), "failed to create client") {
		t.Errorf("err = %v", err)
	}
}

func snapshotOf(msgs []models.Message) session.Snapshot {
	return session.Snapshot{Messages: msgs}
}

func TestDeltaWriter(t *testing.T) {
	var out syncBuffer
	d := &deltaWriter{w: &out}

	msg := func(id, content string, lc models.Lifecycle) []models.Message {
		return []models.Message{
			{ID: "u", Role: models.RoleUser, Content: "q", Lifecycle: models.LifecycleFinal},
			{ID: id, Role: models.RoleAssistant, Content: content, Lifecycle: lc},
		}
	}

	d.observe(snapshotOf(msg("a", "", models.LifecyclePending)))
	d.observe(snapshotOf(msg("a", "Bon", models.LifecycleStreaming)))
	d.observe(snapshotOf(msg("a", "Bonjour", models.LifecycleStreaming)))
	d.observe(snapshotOf(msg("a", "Bonjour", models.LifecycleFinal)))
	d.observe(snapshotOf(msg("a", "ignored", models.LifecycleError)))

	if got := out.String(); got != "Bonjour" {
		t.Errorf("output = %q, want Bonjour", got)
	}

	d.observe(snapshotOf(msg("b", "Hi", models.LifecycleFinal)))
	if got := out.String(); got != "BonjourHi" {
		t.Errorf("output = %q, a new message should restart", got)
	}
}

func TestNewAPIClient(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ServerURL = "http://kb.local:8000/"

	client, err := newAPIClient(cfg)
	if err != nil {
		t.Fatalf("newAPIClient() error: %v", err)
	}
	defer client.Close()
	if client.BaseURL() != "http://kb.local:8000" {
		t.Errorf("BaseURL() = %q", client.BaseURL())
	}

	cfg.ServerURL = "kb.local"
	client, err = newAPIClient(cfg)
	if err == nil {
		t.Error("expected error for a URL without scheme")
	}
	if client != nil {
		t.Error("client should be a nil interface on error")
	}
}
