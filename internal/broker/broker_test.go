package broker_test

import (
	"testing"
	"time"

	"github.com/myrjola/billeffect/internal/broker"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c <-chan int) int {
	t.Helper()
	select {
	case v, ok := <-c:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("no value received")
		return 0
	}
}

func TestBroker(t *testing.T) {
	type testCase struct {
		name     string
		testFunc func(t *testing.T, b *broker.Broker[int])
	}
	tests := []testCase{
		{
			name: "every subscriber receives published value",
			testFunc: func(t *testing.T, b *broker.Broker[int]) {
				first, unsubscribeFirst := b.Subscribe()
				defer unsubscribeFirst()
				second, unsubscribeSecond := b.Subscribe()
				defer unsubscribeSecond()

				b.Publish(1)
				require.Equal(t, 1, receive(t, first))
				require.Equal(t, 1, receive(t, second))
			},
		},
		{
			name: "slow subscriber gets latest value without blocking publisher",
			testFunc: func(t *testing.T, b *broker.Broker[int]) {
				c, unsubscribe := b.Subscribe()
				defer unsubscribe()

				for i := 1; i <= 10; i++ {
					b.Publish(i)
				}
				// The broker handles requests in order, so once another subscription is acknowledged the last
				// publication has been delivered.
				_, barrier := b.Subscribe()
				barrier()
				require.Equal(t, 10, receive(t, c))
			},
		},
		{
			name: "unsubscribe closes channel",
			testFunc: func(t *testing.T, b *broker.Broker[int]) {
				c, unsubscribe := b.Subscribe()
				unsubscribe()
				unsubscribe()
				_, ok := <-c
				require.False(t, ok, "channel not closed")
				b.Publish(1)
			},
		},
		{
			name: "subscriber does not see values published before subscribing",
			testFunc: func(t *testing.T, b *broker.Broker[int]) {
				b.Publish(1)
				c, unsubscribe := b.Subscribe()
				defer unsubscribe()
				b.Publish(2)
				require.Equal(t, 2, receive(t, c))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := broker.NewBroker[int]()
			go br.Start()
			t.Cleanup(br.Stop)
			tt.testFunc(t, br)
		})
	}
}

func TestBroker_StopClosesSubscribers(t *testing.T) {
	br := broker.NewBroker[int]()
	go br.Start()
	c, unsubscribe := br.Subscribe()
	br.Stop()
	_, ok := <-c
	require.False(t, ok, "channel not closed after stop")
	unsubscribe()
	br.Publish(1)

	late, _ := br.Subscribe()
	_, ok = <-late
	require.False(t, ok, "subscription after stop must be closed")
}
