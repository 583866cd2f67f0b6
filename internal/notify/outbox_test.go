package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publisher struct {
	mu      sync.Mutex
	sent    []Message
	failing bool
}

func (p *publisher) publish(m Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failing {
		return errors.New("broker down")
	}
	p.sent = append(p.sent, m)
	return nil
}

func (p *publisher) setFailing(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = v
}

func (p *publisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.sent))
	for i, m := range p.sent {
		out[i] = m.Topic
	}
	return out
}

func TestOutbox_FlushInOrder(t *testing.T) {
	p := &publisher{}
	o := NewOutbox(0, time.Hour, p.publish, nil)

	o.Enqueue(Message{Topic: "a"}, Message{Topic: "b"})
	o.Enqueue(Message{Topic: "c"})
	assert.Equal(t, 3, o.Pending())

	require.NoError(t, o.Flush())
	assert.Equal(t, []string{"a", "b", "c"}, p.topics())
	assert.Equal(t, 0, o.Pending())
}

func TestOutbox_RequeuesOnFailure(t *testing.T) {
	p := &publisher{failing: true}
	o := NewOutbox(0, time.Hour, p.publish, nil)
	o.Enqueue(Message{Topic: "a"}, Message{Topic: "b"})

	err := o.Flush()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing to a")
	assert.Equal(t, 2, o.Pending())

	p.setFailing(false)
	o.Enqueue(Message{Topic: "c"})
	require.NoError(t, o.Flush())
	assert.Equal(t, []string{"a", "b", "c"}, p.topics())
}

func TestOutbox_DropsOldestWhenFull(t *testing.T) {
	p := &publisher{failing: true}
	o := NewOutbox(2, time.Hour, p.publish, nil)
	o.Enqueue(Message{Topic: "a"}, Message{Topic: "b"}, Message{Topic: "c"})

	assert.Equal(t, 2, o.Pending())
	assert.Equal(t, 1, o.Dropped())

	p.setFailing(false)
	require.NoError(t, o.Flush())
	assert.Equal(t, []string{"b", "c"}, p.topics())
}

func TestOutbox_BackgroundDelivery(t *testing.T) {
	p := &publisher{}
	o := NewOutbox(0, time.Hour, p.publish, nil)
	o.Start()
	defer o.Close()

	o.Enqueue(Message{Topic: "a"})
	assert.Eventually(t, func() bool { return len(p.topics()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestOutbox_Close(t *testing.T) {
	p := &publisher{}
	o := NewOutbox(0, time.Hour, p.publish, nil)
	o.Start()
	p.setFailing(true)
	o.Enqueue(Message{Topic: "a"})

	err := o.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 messages undelivered")

	// second close is a no-op
	assert.NoError(t, o.Close())
}

func TestOutbox_CloseWithoutStart(t *testing.T) {
	p := &publisher{}
	o := NewOutbox(0, time.Hour, p.publish, nil)
	o.Enqueue(Message{Topic: "a"})

	require.NoError(t, o.Close())
	assert.Equal(t, []string{"a"}, p.topics())
}
