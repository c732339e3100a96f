package clock

import "time"

type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fake is a settable clock for tests. It is not safe for concurrent Advance.
type Fake struct {
	now time.Time
}

func NewFake(t time.Time) *Fake { return &Fake{now: t.UTC()} }

func (c *Fake) Now() time.Time { return c.now }

func (c *Fake) Advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *Fake) Set(t time.Time) { c.now = t.UTC() }

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
