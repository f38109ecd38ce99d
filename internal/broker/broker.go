package broker

import "sync"

type subscription[T any] struct {
	channel chan T
	// ack is closed once the broker has registered or removed the subscription.
	ack chan struct{}
}

// Broker fans out published values to every live subscriber.
//
// Subscribers only care about the latest value: each subscriber channel has a buffer of one and a value that
// does not fit replaces the stale one, so a slow consumer never blocks the publisher or other subscribers.
//
// This kind of broker is useful for streaming state snapshots through SSE. The publisher is whatever mutates
// the state, the subscribers are the HTTP handlers holding the event streams open.
type Broker[T any] struct {
	stopChannel        chan struct{}
	doneChannel        chan struct{}
	publishChannel     chan T
	subscribeChannel   chan subscription[T]
	unsubscribeChannel chan subscription[T]
}

// NewBroker creates a new Broker. Run Start in a goroutine and Stop to end it.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		stopChannel:        make(chan struct{}),
		doneChannel:        make(chan struct{}),
		publishChannel:     make(chan T),
		subscribeChannel:   make(chan subscription[T]),
		unsubscribeChannel: make(chan subscription[T]),
	}
}

// Start listening for publish, subscribe, and unsubscribe events. This function blocks until Stop() is called,
// so it should be called in a goroutine. All subscriber channels are closed when it returns.
func (b *Broker[T]) Start() {
	defer close(b.doneChannel)
	subscribers := map[chan T]struct{}{}
	for {
		select {
		case <-b.stopChannel:
			for c := range subscribers {
				close(c)
			}
			return

		case s := <-b.subscribeChannel:
			subscribers[s.channel] = struct{}{}
			close(s.ack)

		case s := <-b.unsubscribeChannel:
			if _, ok := subscribers[s.channel]; ok {
				delete(subscribers, s.channel)
				close(s.channel)
			}
			close(s.ack)

		case value := <-b.publishChannel:
			for c := range subscribers {
				offerLatest(c, value)
			}
		}
	}
}

// offerLatest puts value into c, dropping the buffered value if c is full.
func offerLatest[T any](c chan T, value T) {
	for {
		select {
		case c <- value:
			return
		default:
		}
		select {
		case <-c:
		default:
		}
	}
}

// Stop the goroutine that handles the broker and wait for it to close the subscriber channels.
// Stop must be called at most once, after Start.
func (b *Broker[T]) Stop() {
	close(b.stopChannel)
	<-b.doneChannel
}

// Subscribe registers a new subscriber. The returned channel receives published values until the returned
// unsubscribe function is called or the broker stops, after which it is closed. Unsubscribe is idempotent.
func (b *Broker[T]) Subscribe() (<-chan T, func()) {
	s := subscription[T]{channel: make(chan T, 1), ack: make(chan struct{})}
	select {
	case b.subscribeChannel <- s:
		<-s.ack
	case <-b.stopChannel:
		close(s.channel)
		return s.channel, func() {}
	}
	var once sync.Once
	return s.channel, func() {
		once.Do(func() {
			u := subscription[T]{channel: s.channel, ack: make(chan struct{})}
			select {
			case b.unsubscribeChannel <- u:
				<-u.ack
			case <-b.stopChannel:
			}
		})
	}
}

// Publish sends value to all current subscribers. It returns immediately once the broker has the value and
// does nothing after Stop.
func (b *Broker[T]) Publish(value T) {
	select {
	case b.publishChannel <- value:
	case <-b.stopChannel:
	}
}
