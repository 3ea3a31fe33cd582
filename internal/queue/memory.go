package queue

import (
	"context"
	"sync"
)

// MemoryPublisher collects messages in memory. It backs tests and
// deployments that run without a broker.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.messages = append(p.messages, append([]byte(nil), body...))
	return nil
}

func (p *MemoryPublisher) Close() error {
	return nil
}

// Messages returns a copy of everything published so far.
func (p *MemoryPublisher) Messages() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([][]byte, len(p.messages))
	copy(out, p.messages)
	return out
}

var _ Publisher = (*MemoryPublisher)(nil)
