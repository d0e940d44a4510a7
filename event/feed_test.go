package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSend(t *testing.T) {
	var (
		feed Feed
		wg   sync.WaitGroup
		got  = make([][]int, 3)
	)
	for i := range got {
		ch := make(chan int)
		sub := feed.Subscribe(ch)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sub.Unsubscribe()
			for v := range ch {
				got[i] = append(got[i], v)
				if v == 2 {
					return
				}
			}
		}(i)
	}
	for v := 0; v < 3; v++ {
		assert.Equal(t, 3, feed.Send(v))
	}
	wg.Wait()
	for _, g := range got {
		assert.Equal(t, []int{0, 1, 2}, g)
	}
}

func TestFeedUnsubscribeUnblocksSend(t *testing.T) {
	var feed Feed
	ch := make(chan int)
	sub := feed.Subscribe(ch)

	done := make(chan int)
	go func() { done <- feed.Send(1) }()
	time.Sleep(10 * time.Millisecond)
	sub.Unsubscribe()

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("Send did not return after Unsubscribe")
	}
	_, ok := <-sub.Err()
	assert.False(t, ok)
	assert.Equal(t, 0, feed.Send(2))
	sub.Unsubscribe()
}

func TestFeedTypeCheck(t *testing.T) {
	var feed Feed
	feed.Subscribe(make(chan int, 1))
	require.Panics(t, func() { feed.Send("x") })
	require.Panics(t, func() { feed.Subscribe(make(chan string)) })
	require.Panics(t, func() { feed.Subscribe(make(<-chan int)) })
	assert.Equal(t, 1, feed.Send(3))
}
