// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neisii/chatgpt-cli/internal/config"
	"github.com/neisii/chatgpt-cli/internal/input"
	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/storage"
	"github.com/neisii/chatgpt-cli/internal/stream"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeSource struct {
	fragments []string
	err       error
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
	if f.err != nil {
		return "", f.err
	}
	return "", io.EOF
}

type fakeTransport struct {
	mu       sync.Mutex
	source   func() stream.Source
	openErr  error
	requests [][]model.Message
	models   []string
}

func (f *fakeTransport) Open(ctx context.Context, modelName string, msgs []model.Message) (stream.Source, error) {
	f.mu.Lock()
	f.requests = append(f.requests, msgs)
	f.models = append(f.models, modelName)
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.source(), nil
}

func replying(fragments ...string) *fakeTransport {
	return &fakeTransport{source: func() stream.Source {
		return &fakeSource{fragments: append([]string(nil), fragments...)}
	}}
}

type fakeLister struct {
	ids []string
	err error
}

func (f fakeLister) ListModelIDs(ctx context.Context) ([]string, error) { return f.ids, f.err }

type memStore struct {
	saved   [][]model.Message
	loadErr error
	initial []model.Message
	model   string
	closed  bool
}

func (m *memStore) Save(msgs []model.Message) error {
	m.saved = append(m.saved, msgs)
	return nil
}

func (m *memStore) Load() ([]model.Message, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.initial == nil {
		return nil, storage.ErrSessionNotFound
	}
	return m.initial, nil
}

func (m *memStore) SetModel(name string) { m.model = name }
func (m *memStore) Close() error         { m.closed = true; return nil }

var fixedNow = time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)

func newSession(t *testing.T, tr stream.Transport, mutate ...func(*Options)) *Session {
	t.Helper()
	opts := Options{
		Transport:    tr,
		Model:        "gpt-test",
		SystemPrompt: "be brief",
		Now:          func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

// submit feeds text through the machine and runs the exchange.
func submit(t *testing.T, s *Session, text string, sinks stream.Sinks) (string, error) {
	t.Helper()
	step := s.Feed(text)
	sub, ok := step.(input.Submit)
	require.True(t, ok, "Feed(%q) = %#v, want Submit", text, step)
	return s.Exchange(context.Background(), sub.Text, sinks)
}

// =============================================================================
// EXCHANGE TESTS
// =============================================================================

func TestExchange_CommitsReplyBeforeOnDone(t *testing.T) {
	tr := replying("Hel", "lo")
	s := newSession(t, tr)

	var deltas []string
	var lenAtDone int
	full, err := submit(t, s, "hi", stream.Sinks{
		OnDelta: func(f string) { deltas = append(deltas, f) },
		OnDone:  func(string) { lenAtDone = s.Conversation().Len() },
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello", full)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, 3, lenAtDone, "assistant turn must be committed before OnDone")
	assert.Equal(t, input.Idle, s.Machine().State())

	turns := s.Conversation().Transcript()
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, "Hello", turns[1].Content)
}

func TestExchange_TimeHintInPayloadOnly(t *testing.T) {
	tr := replying("ok")
	s := newSession(t, tr, func(o *Options) { o.IncludeTime = true })

	_, err := submit(t, s, "what time is it", stream.Sinks{})
	require.NoError(t, err)

	require.Len(t, tr.requests, 1)
	payload := tr.requests[0]
	require.Len(t, payload, 3)
	last := payload[2]
	assert.Equal(t, model.RoleSystem, last.Role)
	assert.Equal(t, TimeHint(fixedNow), last.Content)
	assert.True(t, strings.HasPrefix(last.Content, "Current local time: Sunday, June 1, 2025 at 12:30:00 PM UTC (2025-06-01T12:30:00Z)"))

	for _, m := range s.Conversation().Snapshot() {
		assert.NotContains(t, m.Content, "Current local time")
	}
}

func TestExchange_NoTimeHintWhenDisabled(t *testing.T) {
	tr := replying("ok")
	s := newSession(t, tr)

	_, err := submit(t, s, "hi", stream.Sinks{})
	require.NoError(t, err)
	assert.Len(t, tr.requests[0], 2)
}

func TestExchange_PartialCommittedOnFailure(t *testing.T) {
	boom := errors.New("connection reset")
	tr := &fakeTransport{source: func() stream.Source {
		return &fakeSource{fragments: []string{"partial "}, err: boom}
	}}
	s := newSession(t, tr)

	var done string
	full, err := submit(t, s, "hi", stream.Sinks{OnDone: func(f string) { done = f }})

	var te *stream.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "partial ", te.Partial)
	assert.Equal(t, "partial ", full)
	assert.Equal(t, "partial ", done)

	last, ok := s.Conversation().LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "partial ", last.Content)
	assert.Equal(t, input.Idle, s.Machine().State())
}

func TestExchange_EmptyReplyCommitted(t *testing.T) {
	s := newSession(t, replying())

	full, err := submit(t, s, "say nothing", stream.Sinks{})
	require.NoError(t, err)
	assert.Equal(t, "", full)
	assert.Equal(t, 3, s.Conversation().Len())
	assert.Equal(t, "", s.LastReply(), "a blank reply leaves nothing to save")
}

func TestExchange_OpenFailureCommitsEmptyTurn(t *testing.T) {
	tr := &fakeTransport{openErr: errors.New("401 unauthorized")}
	s := newSession(t, tr)

	_, err := submit(t, s, "hi", stream.Sinks{})
	var te *stream.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 3, s.Conversation().Len())
	assert.Equal(t, input.Idle, s.Machine().State())
}

func TestExchange_Cancel(t *testing.T) {
	tr := &fakeTransport{source: func() stream.Source {
		return &fakeSource{fragments: []string{"so far"}, block: true}
	}}
	s := newSession(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	step := s.Feed("long question")
	sub := step.(input.Submit)

	started := make(chan struct{})
	var once sync.Once
	errc := make(chan error, 1)
	go func() {
		_, err := s.Exchange(ctx, sub.Text, stream.Sinks{
			OnDelta: func(string) { once.Do(func() { close(started) }) },
		})
		errc <- err
	}()

	<-started
	assert.Equal(t, input.Busy, s.Machine().State())
	cancel()

	err := <-errc
	var te *stream.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Canceled())
	assert.Equal(t, "so far", s.LastReply())
	assert.Equal(t, input.Idle, s.Machine().State())
}

func TestExchange_ValidationBeforeAppend(t *testing.T) {
	s := newSession(t, nil)
	s.Feed("hi")

	_, err := s.Exchange(context.Background(), "hi", stream.Sinks{})
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, s.Conversation().Len(), "nothing appended")
	assert.Equal(t, input.Idle, s.Machine().State())
}

func TestExchange_UsesActiveModel(t *testing.T) {
	tr := replying("ok")
	s := newSession(t, tr)

	_, err := s.Apply(context.Background(), input.Model{Name: "gpt-other"})
	require.NoError(t, err)
	_, err = submit(t, s, "hi", stream.Sinks{})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-other"}, tr.models)
}

func TestExchange_BusyRefusesSecondSubmit(t *testing.T) {
	s := newSession(t, replying("x"))
	_, ok := s.Feed("first").(input.Submit)
	require.True(t, ok)

	step := s.Feed("second")
	assert.Equal(t, input.Ignored{Reason: input.ReasonBusy}, step)

	step = s.Feed("/clear")
	assert.Equal(t, input.Ignored{Reason: input.ReasonBusy}, step)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

func TestNew_RestoresFromStore(t *testing.T) {
	store := &memStore{initial: []model.Message{
		model.NewMessage(model.RoleSystem, "saved prompt"),
		model.NewMessage(model.RoleUser, "earlier"),
		model.NewMessage(model.RoleAssistant, "reply"),
	}}
	s := newSession(t, replying("ok"), func(o *Options) { o.Store = store })

	assert.True(t, s.Restored())
	assert.Equal(t, "saved prompt", s.SystemPrompt())
	assert.Equal(t, "reply", s.LastReply())
	assert.Equal(t, "gpt-test", store.model)

	_, err := submit(t, s, "again", stream.Sinks{})
	require.NoError(t, err)
	require.Len(t, store.saved, 2, "user and assistant turns are each saved")
	assert.Len(t, store.saved[1], 5)
}

func TestNew_ResetSystemOverridesRestore(t *testing.T) {
	store := &memStore{initial: []model.Message{
		model.NewMessage(model.RoleSystem, "saved prompt"),
		model.NewMessage(model.RoleUser, "earlier"),
	}}
	s := newSession(t, replying(), func(o *Options) {
		o.Store = store
		o.ResetSystem = true
	})

	assert.Equal(t, "be brief", s.SystemPrompt())
	assert.Equal(t, 1, s.Conversation().Len())
}

func TestNew_LoadErrorIsNotFatal(t *testing.T) {
	store := &memStore{loadErr: errors.New("disk on fire")}
	s := newSession(t, replying(), func(o *Options) { o.Store = store })
	assert.False(t, s.Restored())
	assert.Equal(t, "be brief", s.SystemPrompt())
}

func TestNew_RequiresModel(t *testing.T) {
	_, err := New(Options{Transport: replying()})
	assert.Error(t, err)
}

func TestSession_WithJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := storage.NewJSONStore(path)
	s := newSession(t, replying("stored"), func(o *Options) { o.Store = store })

	_, err := submit(t, s, "hi", stream.Sinks{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	again := newSession(t, replying(), func(o *Options) { o.Store = storage.NewJSONStore(path) })
	assert.True(t, again.Restored())
	assert.Equal(t, "stored", again.LastReply())
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestApply_Commands(t *testing.T) {
	ctx := context.Background()
	s := newSession(t, replying("answer"), func(o *Options) {
		o.Presets = config.Presets{"coder": "write code"}
		o.Lister = fakeLister{ids: []string{"a-model", "gpt-test"}}
	})
	_, err := submit(t, s, "q", stream.Sinks{})
	require.NoError(t, err)

	out, err := s.Apply(ctx, input.Help{})
	require.NoError(t, err)
	assert.True(t, out.ShowHelp)
	assert.NotEmpty(t, out.Lines)

	out, _ = s.Apply(ctx, input.Model{})
	assert.Equal(t, "Current model: gpt-test", out.Notice)

	out, err = s.Apply(ctx, input.Models{})
	require.NoError(t, err)
	assert.Equal(t, []string{"  a-model", "* gpt-test"}, out.Lines)

	out, _ = s.Apply(ctx, input.System{})
	assert.Contains(t, out.Notice, "be brief")

	out, _ = s.Apply(ctx, input.Preset{})
	require.Len(t, out.Lines, 1)
	assert.Contains(t, out.Lines[0], "coder")

	out, _ = s.Apply(ctx, input.Preset{Name: "missing"})
	assert.Contains(t, out.Notice, "Unknown preset")
	assert.Equal(t, 3, s.Conversation().Len(), "unknown preset leaves the conversation alone")

	out, _ = s.Apply(ctx, input.Preset{Name: "coder"})
	assert.True(t, out.Reset)
	assert.Equal(t, "write code", s.SystemPrompt())
	assert.Equal(t, 1, s.Conversation().Len())

	out, _ = s.Apply(ctx, input.System{Text: "new prompt"})
	assert.True(t, out.Reset)
	assert.Equal(t, "new prompt", s.SystemPrompt())

	out, _ = s.Apply(ctx, input.Clear{})
	assert.True(t, out.Reset)
	assert.Equal(t, "new prompt", s.SystemPrompt(), "clear keeps the active prompt")

	out, _ = s.Apply(ctx, input.Time{})
	assert.Equal(t, "Time hint: ON", out.Notice)
	assert.True(t, s.IncludeTime())

	out, _ = s.Apply(ctx, input.Unknown{Name: "/bogus"})
	assert.Contains(t, out.Notice, "/bogus")

	_, err = s.Apply(ctx, input.End{})
	assert.Error(t, err)

	out, _ = s.Apply(ctx, input.Exit{})
	assert.True(t, out.Exit)
	assert.Equal(t, input.Terminal, s.Machine().State())
}

func TestApply_Save(t *testing.T) {
	s := newSession(t, replying("answer"))
	_, err := submit(t, s, "question", stream.Sinks{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "t.md")
	out, err := s.Apply(context.Background(), input.Save{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, out.Saved)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Chat Transcript (2025-06-01T12:30:00Z)\nModel: gpt-test\n\n**USER**: question\n\n**ASSISTANT**: answer", string(data))
}

func TestApply_ModelsWithoutLister(t *testing.T) {
	s := newSession(t, replying())
	_, err := s.Apply(context.Background(), input.Models{})
	assert.ErrorIs(t, err, ErrNoModelLister)
}

func TestReloadPresets(t *testing.T) {
	s := newSession(t, replying())
	s.ReloadPresets(config.Presets{"fresh": "new"})

	_, ok := s.Presets().Prompt("fresh")
	assert.True(t, ok)
	s.ReloadPresets(nil)
	_, ok = s.Presets().Prompt("fresh")
	assert.True(t, ok, "nil reload is ignored")
}

func TestStepNotice(t *testing.T) {
	assert.Contains(t, StepNotice(input.Composed{}), "/end")
	assert.Equal(t, input.NoticeCancelled, StepNotice(input.Discarded{Notice: input.NoticeCancelled}))
	assert.Equal(t, input.ReasonBusy, StepNotice(input.Ignored{Reason: input.ReasonBusy}))
	assert.Equal(t, "", StepNotice(input.Submit{Text: "x"}))
}
