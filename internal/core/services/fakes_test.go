package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/taskstate/tasksync/internal/core/ports"
	"github.com/taskstate/tasksync/internal/domain"
	"github.com/taskstate/tasksync/internal/infrastructure/dom"
)

var errFakeClosed = errors.New("fake channel closed")

type fakeChannel struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error

	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		inbound: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeChannel) SendJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeChannel) Receive() ([]byte, error) {
	select {
	case data, ok := <-f.inbound:
		if !ok {
			return nil, io.EOF
		}
		return data, nil
	case <-f.closed:
		return nil, errFakeClosed
	}
}

func (f *fakeChannel) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeChannel) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// sentPKLists decodes every payload written so far.
func (f *fakeChannel) sentPKLists(t *testing.T) [][]domain.TaskID {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]domain.TaskID, 0, len(f.sent))
	for _, raw := range f.sent {
		var p domain.PKListPayload
		require.NoError(t, json.Unmarshal(raw, &p))
		out = append(out, p.PKList)
	}
	return out
}

func (f *fakeChannel) rawSent(i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.sent[i])
}

type fakeDialer struct {
	mu       sync.Mutex
	channels map[string]*fakeChannel
	errs     map[string]error
	dialed   []string
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		channels: map[string]*fakeChannel{
			StatusChannelPath: newFakeChannel(),
			SeenChannelPath:   newFakeChannel(),
		},
		errs: map[string]error{},
	}
}

func (d *fakeDialer) Dial(ctx context.Context, path string) (ports.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, path)
	if err := d.errs[path]; err != nil {
		return nil, err
	}
	return d.channels[path], nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dialed)
}

func (d *fakeDialer) status() *fakeChannel { return d.channels[StatusChannelPath] }
func (d *fakeDialer) seen() *fakeChannel   { return d.channels[SeenChannelPath] }

func mustDocument(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(html, nil)
	require.NoError(t, err)
	return doc
}

func indicatorFor(t *testing.T, doc *dom.Document, pk string) *dom.Indicator {
	t.Helper()
	for _, ind := range doc.Indicators() {
		if id, _ := ind.TaskID(); string(id) == pk {
			return ind.(*dom.Indicator)
		}
	}
	t.Fatalf("no indicator for pk %s", pk)
	return nil
}

func ids(values ...string) []domain.TaskID {
	out := make([]domain.TaskID, 0, len(values))
	for _, v := range values {
		out = append(out, domain.TaskID(v))
	}
	return out
}
