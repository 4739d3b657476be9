package mail

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/telekom/mailsend/pkg/credential"
)

// step scripts the behaviour of one connection attempt.
type step struct {
	connectErr error
	noAuth     bool
	authErr    error
	sendErr    error
	closeErr   error
}

// fakeTransport replays a script; the last step repeats once the script is
// exhausted.
type fakeTransport struct {
	mu     sync.Mutex
	script []step
	// onConnect runs before every Connect, outside the lock.
	onConnect func(n int)

	connects int
	auths    int
	sends    int
	closes   int

	lastUser     string
	lastPassword credential.Secret
	lastFrom     string
	lastTo       []string
	lastData     string
}

func newFakeTransport(script ...step) *fakeTransport {
	if len(script) == 0 {
		script = []step{{}}
	}
	return &fakeTransport{script: script}
}

func (f *fakeTransport) Connect(_ context.Context, _ string, _ int) (Conn, error) {
	if f.onConnect != nil {
		f.mu.Lock()
		n := f.connects + 1
		f.mu.Unlock()
		f.onConnect(n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.connects
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.connects++
	s := f.script[i]
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return &fakeConn{t: f, s: s}, nil
}

func (f *fakeTransport) counts() (connects, auths, sends, closes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects, f.auths, f.sends, f.closes
}

type fakeConn struct {
	t *fakeTransport
	s step
}

func (c *fakeConn) SupportsAuth() bool {
	return !c.s.noAuth
}

func (c *fakeConn) Authenticate(username string, password credential.Secret) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.auths++
	c.t.lastUser = username
	c.t.lastPassword = password
	return c.s.authErr
}

func (c *fakeConn) Send(from string, to []string, msg io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return err
	}
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.sends++
	c.t.lastFrom = from
	c.t.lastTo = to
	c.t.lastData = buf.String()
	return c.s.sendErr
}

func (c *fakeConn) Close() error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.closes++
	return c.s.closeErr
}

// memRecorder keeps records in memory and can be told to fail.
type memRecorder struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (r *memRecorder) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memRecorder) all() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.records...)
}
