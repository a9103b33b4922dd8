// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/session"
	"github.com/neisii/chatgpt-cli/internal/stream"
)

// isolate points the config directory at a temp dir and clears the
// environment variables config reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GPTCLI_HOME", dir)
	for _, name := range append([]string{
		"OPENAI_BASE_URL", "MODEL", "GPTCLI_MODEL", "GPTCLI_SYSTEM_PROMPT",
		"GPTCLI_INCLUDE_TIME", "GPTCLI_PASTE_GUARD_MS", "GPTCLI_SESSION_BACKEND",
	}, config.APIKeyEnvVars...) {
		t.Setenv(name, "")
	}
	return dir
}

// =============================================================================
// COMMAND PARSING
// =============================================================================

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name     string
		argv     []string
		wantCmd  Command
		validate func(*testing.T, Args)
	}{
		{
			name:    "no args starts the TUI",
			argv:    nil,
			wantCmd: CmdTUI,
		},
		{
			name:    "flags only still start the TUI",
			argv:    []string{"-m", "gpt-4o"},
			wantCmd: CmdTUI,
			validate: func(t *testing.T, a Args) {
				if a.Model != "gpt-4o" {
					t.Errorf("Model = %q, want %q", a.Model, "gpt-4o")
				}
			},
		},
		{
			name:    "chat with model",
			argv:    []string{"chat", "--model", "gpt-4o"},
			wantCmd: CmdChat,
			validate: func(t *testing.T, a Args) {
				if a.Model != "gpt-4o" {
					t.Errorf("Model = %q, want %q", a.Model, "gpt-4o")
				}
			},
		},
		{
			name:    "ask joins the question",
			argv:    []string{"--model=o1", "ask", "what", "is", "go"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "what is go" {
					t.Errorf("Query = %q, want %q", a.Query, "what is go")
				}
				if a.Model != "o1" {
					t.Errorf("Model = %q, want %q", a.Model, "o1")
				}
			},
		},
		{
			name:    "boolean flags do not eat the question",
			argv:    []string{"ask", "--no-time", "hello"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if !a.NoTime {
					t.Error("NoTime should be true")
				}
				if a.Query != "hello" {
					t.Errorf("Query = %q, want %q", a.Query, "hello")
				}
			},
		},
		{
			name:    "all global flags",
			argv:    []string{"-s", "be terse", "--preset", "coder", "--no-persist", "-q", "--config", "/tmp/c.toml", "chat"},
			wantCmd: CmdChat,
			validate: func(t *testing.T, a Args) {
				if a.System != "be terse" || a.Preset != "coder" || a.ConfigPath != "/tmp/c.toml" {
					t.Errorf("got System=%q Preset=%q ConfigPath=%q", a.System, a.Preset, a.ConfigPath)
				}
				if !a.NoPersist || !a.Quiet {
					t.Errorf("NoPersist=%v Quiet=%v, want both true", a.NoPersist, a.Quiet)
				}
			},
		},
		{
			name:    "config subcommand",
			argv:    []string{"config", "SET", "chat.model", "gpt-4o"},
			wantCmd: CmdConfig,
			validate: func(t *testing.T, a Args) {
				if a.Subcommand != "set" {
					t.Errorf("Subcommand = %q, want %q", a.Subcommand, "set")
				}
				if len(a.Raw) != 3 {
					t.Errorf("Raw = %v, want 3 entries", a.Raw)
				}
			},
		},
		{
			name:    "double dash keeps flag-like words",
			argv:    []string{"ask", "--", "-m", "means", "model"},
			wantCmd: CmdAsk,
			validate: func(t *testing.T, a Args) {
				if a.Query != "-m means model" {
					t.Errorf("Query = %q, want %q", a.Query, "-m means model")
				}
				if a.Model != "" {
					t.Errorf("Model = %q, want empty", a.Model)
				}
			},
		},
		{name: "presets", argv: []string{"presets"}, wantCmd: CmdPresets},
		{name: "version", argv: []string{"version"}, wantCmd: CmdVersion},
		{name: "help flag", argv: []string{"--help"}, wantCmd: CmdHelp},
		{
			name:    "unknown command",
			argv:    []string{"frobnicate"},
			wantCmd: CmdUnknown,
			validate: func(t *testing.T, a Args) {
				if a.Unknown != "frobnicate" {
					t.Errorf("Unknown = %q, want %q", a.Unknown, "frobnicate")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Fatalf("command = %v, want %v", cmd, tt.wantCmd)
			}
			if tt.validate != nil {
				tt.validate(t, args)
			}
		})
	}
}

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"set", "chat.model", "gpt-4o", "--force", "--out=x.md", "-n", "3"}, "force")

	if p.Subcommand() != "set" {
		t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), "set")
	}
	if got := strings.Join(p.PositionalFrom(1), " "); got != "chat.model gpt-4o" {
		t.Errorf("PositionalFrom(1) = %q", got)
	}
	if !p.BoolFlag("force") {
		t.Error("BoolFlag(force) should be true")
	}
	if p.Flag("out") != "x.md" {
		t.Errorf("Flag(out) = %q, want %q", p.Flag("out"), "x.md")
	}
	if p.Flag("-n") != "3" {
		t.Errorf("Flag(-n) = %q, want %q", p.Flag("-n"), "3")
	}
	if !p.HasFlag("--out") || p.HasFlag("missing") {
		t.Error("HasFlag mismatch")
	}
	if p.Positional(9) != "" {
		t.Error("out-of-range Positional should be empty")
	}
	if p.FlagOrDefault("missing", "dflt") != "dflt" {
		t.Error("FlagOrDefault should fall back")
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		if v, err := ParseBoolString(s); err != nil || !v {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, v, err)
		}
	}
	for _, s := range []string{"false", "no", "N", "0", "off"} {
		if v, err := ParseBoolString(s); err != nil || v {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, v, err)
		}
	}
	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) should fail")
	}
}

// =============================================================================
// CONFIG AND STARTUP
// =============================================================================

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Chat.Preset = "coder"

	applyFlags(cfg, Args{Model: " gpt-4o ", System: "be terse", NoTime: true, NoPersist: true})

	assert.Equal(t, "gpt-4o", cfg.Chat.Model)
	assert.Equal(t, "be terse", cfg.Chat.SystemPrompt)
	assert.Empty(t, cfg.Chat.Preset, "an explicit system prompt replaces the configured preset")
	assert.False(t, cfg.Chat.IncludeTime)
	assert.False(t, cfg.Session.Persist)

	applyFlags(cfg, Args{Preset: "concise"})
	assert.Equal(t, "concise", cfg.Chat.Preset)
}

func TestOpenRuntime(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		isolate(t)
		_, err := OpenRuntime(Args{}, RuntimeOptions{})
		require.ErrorIs(t, err, ErrMissingAPIKey)
		assert.Equal(t, ExitGeneralError, GetExitCode(err))
	})

	t.Run("unknown preset", func(t *testing.T) {
		isolate(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		_, err := OpenRuntime(Args{Preset: "nope"}, RuntimeOptions{Ephemeral: true})
		require.ErrorIs(t, err, config.ErrUnknownPreset)
	})

	t.Run("wired", func(t *testing.T) {
		isolate(t)
		t.Setenv("OPENAI_KEY", "sk-test")

		rt, err := OpenRuntime(Args{Model: "gpt-4o", Preset: "coder", NoTime: true}, RuntimeOptions{Ephemeral: true})
		require.NoError(t, err)
		defer rt.Close()

		assert.Equal(t, "gpt-4o", rt.Session.Model())
		assert.False(t, rt.Session.IncludeTime())
		coder, _ := config.BuiltinPresets().Prompt("coder")
		assert.Equal(t, coder, rt.Session.SystemPrompt())
		assert.True(t, rt.Client.IsConfigured())
		assert.False(t, rt.Config.Session.Persist)
	})

	t.Run("persisted conversation is restored", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")

		rt, err := OpenRuntime(Args{}, RuntimeOptions{})
		require.NoError(t, err)
		require.NoError(t, rt.Session.Conversation().AppendUser("remember me"))
		require.NoError(t, rt.Close())
		assert.FileExists(t, filepath.Join(dir, "session.json"))

		rt, err = OpenRuntime(Args{}, RuntimeOptions{})
		require.NoError(t, err)
		defer rt.Close()
		assert.True(t, rt.Session.Restored())
	})
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[session]\nbackend = \"mongo\"\n"), 0600))

	_, err := LoadConfig(Args{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.backend")
}

func TestConfigSetAndGet(t *testing.T) {
	dir := isolate(t)
	var out bytes.Buffer

	require.NoError(t, handleConfigSet(&out, Args{}, "chat.model", "gpt-4o"))
	assert.Contains(t, out.String(), "chat.model = gpt-4o")

	cfg, err := readConfigFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Chat.Model)

	out.Reset()
	require.NoError(t, handleConfigGet(&out, Args{}, "chat.model"))
	assert.Equal(t, "gpt-4o\n", out.String())

	err = handleConfigSet(&out, Args{}, "session.backend", "mongo")
	require.Error(t, err, "invalid values are not written")
	cfg, err = readConfigFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.BackendJSON, cfg.Session.Backend)

	var ve *ValidationError
	require.ErrorAs(t, handleConfigSet(&out, Args{}, "chat.nope", "x"), &ve)
	assert.Equal(t, ExitUsageError, GetExitCode(ve))
}

func TestConfigShowMasksKey(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-abcdefghijklmnop")

	var out bytes.Buffer
	require.NoError(t, handleConfigShow(&out, Args{}))
	assert.NotContains(t, out.String(), "sk-abcdefghijklmnop")
	assert.Contains(t, out.String(), "****mnop")
	assert.Contains(t, out.String(), "[chat]")
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", "(not set)"},
		{"short", "****"},
		{"sk-1234567890", "****7890"},
	}
	for _, tt := range tests {
		if got := maskAPIKey(tt.in); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPresetsAddShowRemove(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "presets.yaml")
	var out bytes.Buffer

	require.NoError(t, addPreset(&out, path, "Pirate", "Talk like a pirate."))
	out.Reset()
	require.NoError(t, showPreset(&out, path, "pirate"))
	assert.Equal(t, "Talk like a pirate.\n", out.String())

	out.Reset()
	require.NoError(t, listPresets(&out, path))
	assert.Contains(t, out.String(), "pirate")
	assert.Contains(t, out.String(), "coder")

	require.NoError(t, removePreset(&out, path, "pirate"))
	assert.ErrorIs(t, showPreset(&out, path, "pirate"), config.ErrUnknownPreset)

	// overriding then removing a built-in restores it
	require.NoError(t, addPreset(&out, path, "coder", "Only Go."))
	out.Reset()
	require.NoError(t, removePreset(&out, path, "coder"))
	assert.Contains(t, out.String(), "Restored")
	presets, err := config.LoadPresets(path)
	require.NoError(t, err)
	want, _ := config.BuiltinPresets().Prompt("coder")
	got, _ := presets.Prompt("coder")
	assert.Equal(t, want, got)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitSuccess},
		{errors.New("boom"), ExitGeneralError},
		{ErrMissingAPIKey, ExitGeneralError},
		{ErrMissingArgument("question", "gptcli ask hi"), ExitUsageError},
		{fmt.Errorf("wrapped: %w", &ValidationError{Field: "x"}), ExitUsageError},
		{errInterrupted, ExitInterrupted},
	}
	for _, tt := range tests {
		if got := GetExitCode(tt.err); got != tt.want {
			t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorHint(t *testing.T) {
	assert.Contains(t, errorHint(ErrMissingAPIKey), "OPENAI_API_KEY")
	assert.Contains(t, errorHint(fmt.Errorf("x: %w", config.ErrUnknownPreset)), "gptcli presets")
	assert.Empty(t, errorHint(errors.New("other")))
}

// =============================================================================
// ASK
// =============================================================================

func TestJoinQuestion(t *testing.T) {
	tests := []struct{ q, piped, want string }{
		{"summarize", "", "summarize"},
		{"", "stdin text", "stdin text"},
		{"summarize", "stdin text", "summarize\n\nstdin text"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := joinQuestion(tt.q, tt.piped); got != tt.want {
			t.Errorf("joinQuestion(%q, %q) = %q, want %q", tt.q, tt.piped, got, tt.want)
		}
	}
}

func TestReadAllLimited(t *testing.T) {
	got, err := readAllLimited(strings.NewReader("  hello\n"))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = readAllLimited(strings.NewReader(strings.Repeat("x", MaxStdinBytes+1)))
	assert.Error(t, err)
}

// =============================================================================
// REPL
// =============================================================================

type fakeSource struct {
	fragments []string
	block     bool
}

func (f *fakeSource) Next(ctx context.Context) (string, error) {
	if len(f.fragments) > 0 {
		next := f.fragments[0]
		f.fragments = f.fragments[1:]
		return next, nil
	}
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return "", io.EOF
}

type fakeTransport struct {
	mu        sync.Mutex
	fragments []string
	block     bool
	openErr   error
	opened    chan struct{}
	requests  [][]model.Message
}

func (f *fakeTransport) Open(ctx context.Context, modelName string, msgs []model.Message) (stream.Source, error) {
	f.mu.Lock()
	f.requests = append(f.requests, msgs)
	f.mu.Unlock()
	if f.opened != nil {
		f.opened <- struct{}{}
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeSource{fragments: append([]string(nil), f.fragments...), block: f.block}, nil
}

func (f *fakeTransport) lastUserText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	msgs := f.requests[len(f.requests)-1]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func newTestREPL(t *testing.T, tr *fakeTransport) (*chatREPL, *bytes.Buffer) {
	t.Helper()
	isolate(t)
	sess, err := session.New(session.Options{
		Transport:    tr,
		Model:        "gpt-test",
		SystemPrompt: "be brief",
		IncludeTime:  true,
		Now:          func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	var out bytes.Buffer
	return newChatREPL(sess, &out, false), &out
}

func TestChatREPL_Exchange(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"Hi", " there"}}
	repl, out := newTestREPL(t, tr)

	quit := repl.handleLine(context.Background(), "hello")

	assert.False(t, quit)
	assert.Contains(t, out.String(), "AI:")
	assert.Contains(t, out.String(), "Hi there\n")
	assert.Equal(t, "Hi there", repl.sess.LastReply())
	assert.Equal(t, promptIdle, repl.prompt())
}

func TestChatREPL_EmptyReplyPrintsNothing(t *testing.T) {
	repl, out := newTestREPL(t, &fakeTransport{})

	repl.handleLine(context.Background(), "hello")

	assert.Empty(t, out.String())
	assert.Equal(t, 3, repl.sess.Conversation().Len(), "the empty assistant turn is still committed")
}

func TestChatREPL_Commands(t *testing.T) {
	repl, out := newTestREPL(t, &fakeTransport{})
	ctx := context.Background()

	repl.handleLine(ctx, "/time")
	assert.Contains(t, out.String(), "Time hint: OFF")

	out.Reset()
	repl.handleLine(ctx, "/model gpt-4o")
	assert.Contains(t, out.String(), "Model changed: gpt-4o")

	out.Reset()
	repl.handleLine(ctx, "/help")
	assert.Contains(t, out.String(), "/preset [name]")

	out.Reset()
	repl.handleLine(ctx, "/wat")
	assert.Contains(t, out.String(), "Unknown command /wat")

	out.Reset()
	repl.handleLine(ctx, "/models")
	assert.Contains(t, out.String(), "[Error]", "no lister is configured")

	assert.True(t, repl.handleLine(ctx, "/exit"))
}

func TestChatREPL_Multiline(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"ok"}}
	repl, out := newTestREPL(t, tr)
	ctx := context.Background()

	repl.handleLine(ctx, "/multi")
	assert.Contains(t, out.String(), "Multi-line mode")
	assert.Equal(t, promptComposing, repl.prompt())

	repl.handleLine(ctx, "first line")
	repl.handleLine(ctx, "  second line")
	repl.handleLine(ctx, "/end")

	assert.Equal(t, "first line\n  second line", tr.lastUserText())
	assert.Equal(t, promptIdle, repl.prompt())
}

func TestChatREPL_Error(t *testing.T) {
	repl, out := newTestREPL(t, &fakeTransport{openErr: errors.New("connection refused")})

	repl.handleLine(context.Background(), "hello")

	assert.Contains(t, out.String(), "[Error]")
	assert.Contains(t, out.String(), "connection refused")
	assert.Equal(t, promptIdle, repl.prompt(), "the session is usable after a failure")
}

func TestChatREPL_Interrupt(t *testing.T) {
	tr := &fakeTransport{fragments: []string{"partial"}, block: true, opened: make(chan struct{}, 1)}
	repl, out := newTestREPL(t, tr)

	assert.False(t, repl.Interrupt(), "nothing to cancel yet")

	done := make(chan struct{})
	go func() {
		repl.handleLine(context.Background(), "tell me a long story")
		close(done)
	}()

	select {
	case <-tr.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("exchange never started")
	}
	require.Eventually(t, repl.Interrupt, time.Second, 5*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("exchange did not stop after Interrupt")
	}
	assert.Contains(t, out.String(), "partial")
	assert.Contains(t, out.String(), "[cancelled]")
	assert.Equal(t, "partial", repl.sess.LastReply(), "partial text is kept")
}

func TestStreamedRows(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  int
	}{
		{"abc", 10, 1},
		{"", 10, 1},
		{"12345678901", 10, 2},
		{"a\nb", 10, 2},
		{"a\n\nb", 10, 3},
		{"한글한글한글", 10, 2},
	}
	for _, tt := range tests {
		if got := streamedRows(tt.text, tt.width); got != tt.want {
			t.Errorf("streamedRows(%q, %d) = %d, want %d", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestGetColorProfile(t *testing.T) {
	t.Cleanup(func() { ForceColorsEnabled(IsStdoutTTY()) })

	ForceColorsEnabled(false)
	assert.False(t, ColorsEnabled())
	assert.Equal(t, termenv.Ascii, GetColorProfile())

	ForceColorsEnabled(true)
	assert.True(t, ColorsEnabled())
}
