// Package sse pushes dataset change notifications to browsers over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	EventDatasetReloaded = "dataset.reloaded"
	EventSourceChanged   = "source.changed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ReloadInfo is the payload of a dataset.reloaded event.
type ReloadInfo struct {
	Version      string    `json:"version"`
	Publications int       `json:"publications"`
	Authors      int       `json:"authors"`
	RowErrors    int       `json:"row_errors"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// heartbeat is how often an idle stream gets a comment line so proxies
// keep the connection open.
var heartbeat = 25 * time.Second

// retryMillis is the reconnect delay suggested to browsers.
const retryMillis = 5000

// Broker fans dataset events out to connected streams.
//
// The event loop goroutine owns the stream set and the change throttle;
// everything else reaches it over channels.
type Broker struct {
	changeMin time.Duration

	joinCh   chan chan []byte
	leaveCh  chan chan []byte
	eventCh  chan Event
	changeCh chan []string

	streams atomic.Int64
	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker. source.changed events closer together than
// changeThrottle are dropped.
func NewBroker(changeThrottle time.Duration) *Broker {
	if changeThrottle <= 0 {
		changeThrottle = 2 * time.Second
	}

	b := &Broker{
		changeMin: changeThrottle,
		joinCh:    make(chan chan []byte),
		leaveCh:   make(chan chan []byte),
		eventCh:   make(chan Event, 256),
		changeCh:  make(chan []string, 256),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}

	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.stopped)

	streams := make(map[chan []byte]struct{})
	var (
		lastChange time.Time
		seq        uint64
	)

	send := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		frame := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))
		for ch := range streams {
			select {
			case ch <- frame:
			default:
				// Stream is behind; it misses this event.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range streams {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			streams[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := streams[ch]; ok {
				delete(streams, ch)
				close(ch)
			}

		case event := <-b.eventCh:
			send(event)

		case tables := <-b.changeCh:
			if now := time.Now(); now.Sub(lastChange) >= b.changeMin {
				lastChange = now
				send(Event{Type: EventSourceChanged, Data: map[string][]string{"tables": tables}})
			}
		}
	}
}

// Close stops the event loop and ends every open stream. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// ClientCount returns the number of open streams.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	return int(b.streams.Load())
}

// join registers a stream. The returned channel is closed when the broker
// stops.
func (b *Broker) join() chan []byte {
	ch := make(chan []byte, 64)
	select {
	case b.joinCh <- ch:
		b.streams.Add(1)
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// leave must be called once per joined stream.
func (b *Broker) leave(ch chan []byte) {
	select {
	case b.leaveCh <- ch:
		b.streams.Add(-1)
	case <-b.stopped:
	}
}

func (b *Broker) publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.eventCh <- event:
	case <-b.stopped:
	}
}

// PublishReload announces a newly installed dataset.
func (b *Broker) PublishReload(info ReloadInfo) {
	b.publish(Event{Type: EventDatasetReloaded, Data: info})
}

// PublishSourceChange announces edited source tables, throttled.
func (b *Broker) PublishSourceChange(tables []string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- tables:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client until it disconnects or the
// broker closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.join()
	defer b.leave(ch)

	tick := time.NewTicker(heartbeat)
	defer tick.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
