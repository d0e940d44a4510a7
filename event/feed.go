// Package event delivers values from one sender to any number of
// subscribed channels.
package event

import (
	"errors"
	"reflect"
	"sync"
)

var errBadChannel = errors.New("event: Subscribe argument does not have sendable channel type")

// Subscription is the receiving end of a Feed. Err is closed by Unsubscribe.
type Subscription interface {
	Err() <-chan error
	Unsubscribe()
}

// Feed sends each value to all subscribed channels. Send blocks until every
// subscriber received the value or unsubscribed. All channels of a feed
// carry the same element type; the first Subscribe or Send fixes it.
//
// The zero value is ready to use.
type Feed struct {
	mu    sync.Mutex
	etype reflect.Type
	subs  []*feedSub
}

type feedTypeError struct {
	got, want reflect.Type
	op        string
}

func (e feedTypeError) Error() string {
	return "event: wrong type in " + e.op + " got " + e.got.String() + ", want " + e.want.String()
}

// typecheck must be called with mu held.
func (f *Feed) typecheck(typ reflect.Type) bool {
	if f.etype == nil {
		f.etype = typ
		return true
	}
	return f.etype == typ
}

// Subscribe adds channel to the feed. It panics if channel is not a
// sendable channel of the feed's element type.
func (f *Feed) Subscribe(channel interface{}) Subscription {
	chanval := reflect.ValueOf(channel)
	chantyp := chanval.Type()
	if chantyp.Kind() != reflect.Chan || chantyp.ChanDir()&reflect.SendDir == 0 {
		panic(errBadChannel)
	}
	sub := &feedSub{feed: f, channel: chanval, quit: make(chan struct{}), err: make(chan error)}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.typecheck(chantyp.Elem()) {
		panic(feedTypeError{op: "Subscribe", got: chantyp, want: reflect.ChanOf(reflect.SendDir, f.etype)})
	}
	f.subs = append(f.subs, sub)
	return sub
}

// Send delivers value to all current subscribers and returns how many
// received it.
func (f *Feed) Send(value interface{}) (nsent int) {
	rvalue := reflect.ValueOf(value)

	f.mu.Lock()
	if !f.typecheck(rvalue.Type()) {
		f.mu.Unlock()
		panic(feedTypeError{op: "Send", got: rvalue.Type(), want: f.etype})
	}
	subs := append([]*feedSub(nil), f.subs...)
	f.mu.Unlock()

	for _, sub := range subs {
		if sub.channel.TrySend(rvalue) {
			nsent++
			continue
		}
		cases := []reflect.SelectCase{
			{Dir: reflect.SelectSend, Chan: sub.channel, Send: rvalue},
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(sub.quit)},
		}
		if chosen, _, _ := reflect.Select(cases); chosen == 0 {
			nsent++
		}
	}
	return nsent
}

func (f *Feed) remove(sub *feedSub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s == sub {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

type feedSub struct {
	feed    *Feed
	channel reflect.Value
	once    sync.Once
	quit    chan struct{}
	err     chan error
}

func (sub *feedSub) Unsubscribe() {
	sub.once.Do(func() {
		sub.feed.remove(sub)
		close(sub.quit)
		close(sub.err)
	})
}

func (sub *feedSub) Err() <-chan error {
	return sub.err
}
