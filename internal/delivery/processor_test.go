package delivery

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phamtq/msg-delivery/internal/delivery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type textSend struct {
	addr string
	text string
	at   time.Time
}

type mediaSend struct {
	addr  string
	media domain.Media
}

// fakeChannel is an in-memory delivery channel adapter for tests.
type fakeChannel struct {
	mu sync.Mutex

	ready     bool
	exists    map[string]bool
	existsErr error
	sendErr   error

	lookups    []string
	textSends  []textSend
	mediaSends []mediaSend
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		ready:  true,
		exists: map[string]bool{},
	}
}

func (f *fakeChannel) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeChannel) RecipientExists(_ context.Context, addr string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, addr)
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.exists[addr], nil
}

func (f *fakeChannel) SendText(_ context.Context, addr, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.textSends = append(f.textSends, textSend{addr: addr, text: text, at: time.Now()})
	return nil
}

func (f *fakeChannel) SendMedia(_ context.Context, addr string, media domain.Media) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mediaSends = append(f.mediaSends, mediaSend{addr: addr, media: media})
	return nil
}

func (f *fakeChannel) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.textSends) + len(f.mediaSends)
}

func TestProcessor_TextDelivery(t *testing.T) {
	ch := newFakeChannel()
	ch.exists["5551234@c.us"] = true
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5551234",
		Type: domain.KindText,
		Msg:  "hello",
	})

	assert.Equal(t, OutcomeAck, outcome)
	require.Len(t, ch.textSends, 1)
	assert.Equal(t, "5551234@c.us", ch.textSends[0].addr)
	assert.Equal(t, "hello", ch.textSends[0].text)
}

func TestProcessor_ChannelNotReady(t *testing.T) {
	ch := newFakeChannel()
	ch.ready = false
	ch.exists["5551234@c.us"] = true
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5551234",
		Type: domain.KindText,
		Msg:  "hello",
	})

	assert.Equal(t, OutcomeRequeue, outcome)
	assert.Empty(t, ch.lookups, "no lookup should be attempted")
	assert.Zero(t, ch.sendCount(), "no send should be attempted")
}

func TestProcessor_UnknownRecipientDiscards(t *testing.T) {
	ch := newFakeChannel()
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5559999",
		Type: domain.KindText,
		Msg:  "hello",
	})

	// Permanent failure: acknowledged, not requeued.
	assert.Equal(t, OutcomeAck, outcome)
	assert.Zero(t, ch.sendCount())
}

func TestProcessor_LookupErrorRequeues(t *testing.T) {
	ch := newFakeChannel()
	ch.existsErr = domain.NewChannelError("recipient lookup", assert.AnError)
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5551234",
		Type: domain.KindText,
		Msg:  "hello",
	})

	assert.Equal(t, OutcomeRequeue, outcome)
	assert.Zero(t, ch.sendCount())
}

func TestProcessor_SendErrorRequeues(t *testing.T) {
	ch := newFakeChannel()
	ch.exists["5551234@c.us"] = true
	ch.sendErr = domain.NewChannelError("send text", assert.AnError)
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5551234",
		Type: domain.KindText,
		Msg:  "hello",
	})

	assert.Equal(t, OutcomeRequeue, outcome)
}

func TestProcessor_PermanentSendErrorDiscards(t *testing.T) {
	ch := newFakeChannel()
	ch.exists["5551234@c.us"] = true
	ch.sendErr = domain.ErrRecipientNotFound
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5551234",
		Type: domain.KindText,
		Msg:  "hello",
	})

	assert.Equal(t, OutcomeAck, outcome)
}

func TestProcessor_GroupSkipsExistenceCheck(t *testing.T) {
	ch := newFakeChannel()
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "12036304@g.us",
		Type: domain.KindText,
		Msg:  "hello group",
	})

	assert.Equal(t, OutcomeAck, outcome)
	assert.Empty(t, ch.lookups, "group addresses are not looked up")
	require.Len(t, ch.textSends, 1)
	assert.Equal(t, "12036304@g.us", ch.textSends[0].addr)
}

func TestProcessor_MediaDelivery(t *testing.T) {
	ch := newFakeChannel()
	ch.exists["5551234@c.us"] = true
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:      "5551234",
		Type:    domain.KindMedia,
		Msg:     "data:image/png;base64,iVBORw0KGgo=",
		Options: &domain.Options{Caption: "a picture"},
	})

	assert.Equal(t, OutcomeAck, outcome)
	require.Len(t, ch.mediaSends, 1)
	assert.Equal(t, "5551234@c.us", ch.mediaSends[0].addr)
	assert.Equal(t, "image/png", ch.mediaSends[0].media.MimeType)
	assert.Equal(t, "iVBORw0KGgo=", ch.mediaSends[0].media.Data)
	assert.Equal(t, "a picture", ch.mediaSends[0].media.Caption)
}

func TestProcessor_MediaFallsBackToText(t *testing.T) {
	ch := newFakeChannel()
	ch.exists["5551234@c.us"] = true
	p := NewProcessor(ch, testLogger())

	outcome := p.Process(context.Background(), &domain.Job{
		To:   "5551234",
		Type: domain.KindMedia,
		Msg:  "not a data uri",
	})

	// Unparseable media bodies degrade to text delivery, never dropped.
	assert.Equal(t, OutcomeAck, outcome)
	assert.Empty(t, ch.mediaSends)
	require.Len(t, ch.textSends, 1)
	assert.Equal(t, "not a data uri", ch.textSends[0].text)
}
