package destination

import (
	"context"
	"errors"
	"sync"

	"github.com/dl-alexandre/sheetmirror/internal/logging"
)

// ErrPoolClosed is returned by Get after CloseAll
var ErrPoolClosed = errors.New("destination: pool closed")

// Pool hands out connections for the lifetime of one run. Connections are
// dialled on first demand and reused once returned.
type Pool struct {
	dialer Dialer
	logger logging.Logger

	mu     sync.Mutex
	idle   []Conn
	open   map[Conn]struct{}
	dials  int
	closed bool
}

// NewPool creates an empty pool; nothing is dialled until Get
func NewPool(dialer Dialer, logger logging.Logger) *Pool {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Pool{
		dialer: dialer,
		logger: logger,
		open:   make(map[Conn]struct{}),
	}
}

// Get checks out an idle connection or dials a new one
func (p *Pool) Get(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return c, nil
	}
	p.dials++
	p.mu.Unlock()

	c, err := p.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = c.Close()
		return nil, ErrPoolClosed
	}
	p.open[c] = struct{}{}
	return c, nil
}

// Put returns a healthy connection for reuse
func (p *Pool) Put(c Conn) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		delete(p.open, c)
		_ = c.Close()
		return
	}
	p.idle = append(p.idle, c)
}

// Discard closes a connection that should not be reused
func (p *Pool) Discard(c Conn) {
	if c == nil {
		return
	}
	p.mu.Lock()
	delete(p.open, c)
	p.mu.Unlock()
	if err := c.Close(); err != nil {
		p.logger.Debug("Closing discarded connection failed", logging.F("error", err.Error()))
	}
}

// Dials reports how many connections were attempted
func (p *Pool) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

// CloseAll closes every connection the pool opened. Further Gets fail.
func (p *Pool) CloseAll() error {
	p.mu.Lock()
	p.closed = true
	conns := make([]Conn, 0, len(p.open))
	for c := range p.open {
		conns = append(conns, c)
	}
	p.open = make(map[Conn]struct{})
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
