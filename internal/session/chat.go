package session

import (
	"context"
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// InternetSource is the source label the backend uses for answers not grounded in uploaded material.
const InternetSource = "internet"

type Turn struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Sources   []string
}

// FromInternet reports whether any source is the internet label.
func (t Turn) FromInternet() bool {
	for _, s := range t.Sources {
		if s == InternetSource {
			return true
		}
	}
	return false
}

func (t Turn) clone() Turn {
	t.Sources = append([]string{}, t.Sources...)
	return t
}

type Chat struct {
	asker Asker
	now   func() time.Time

	mu       sync.Mutex
	turns    []Turn
	inFlight bool
	// epoch changes on Clear so a late answer never lands in a newer transcript.
	epoch int
}

func NewChat(asker Asker) *Chat {
	return &Chat{asker: asker, now: time.Now}
}

// Send appends the user turn immediately, asks the backend and appends the
// assistant turn on success. The input is sent exactly as typed.
func (c *Chat) Send(ctx context.Context, input string) (Turn, error) {
	if strings.TrimSpace(input) == "" {
		return Turn{}, ErrEmptyQuestion
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return Turn{}, ErrBusy
	}
	c.turns = append(c.turns, Turn{Role: RoleUser, Content: input, Timestamp: c.now(), Sources: []string{}})
	c.inFlight = true
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.asker.Ask(ctx, input)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if err != nil {
		return Turn{}, err
	}
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	turn := Turn{Role: RoleAssistant, Content: resp.Answer, Timestamp: c.now(), Sources: append([]string{}, sources...)}
	if epoch == c.epoch {
		c.turns = append(c.turns, turn)
	}
	return turn.clone(), nil
}

func (c *Chat) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
	c.epoch++
}

func (c *Chat) Transcript() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, 0, len(c.turns))
	for _, t := range c.turns {
		out = append(out, t.clone())
	}
	return out
}

func (c *Chat) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
