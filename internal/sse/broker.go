// Package sse streams study state changes to browsers as Server-Sent Events.
//
// Every event gets a sequence number that is sent as the SSE id. The broker
// keeps the most recent events so a client reconnecting with Last-Event-ID
// receives what it missed, as long as it is still in the history.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/smartstudy/internal/kvstore"
	"github.com/starford/smartstudy/internal/transfer"
)

// Event types.
const (
	EventStateChanged   = "state.changed"
	EventStorageUpdated = "storage.updated"
	EventImportPending  = "import.pending"
)

const (
	clientBuffer     = 64
	defaultHistory   = 128
	defaultKeepAlive = 25 * time.Second
	reconnectDelayMS = 3000
)

// Event is a typed payload to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	seq  uint64
	typ  string
	data []byte
}

// Subscription is one connected client. C is closed when the subscription
// ends or the broker shuts down.
type Subscription struct {
	C <-chan []byte

	ch    chan []byte
	types map[string]bool
}

func (s *Subscription) wants(typ string) bool {
	return len(s.types) == 0 || s.types[typ]
}

type subscribeReq struct {
	sub    *Subscription
	lastID uint64
}

// Option configures a Broker.
type Option func(*Broker)

// WithHistory sets how many recent events are kept for replay.
func WithHistory(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.historySize = n
		}
	}
}

// WithKeepAlive sets the interval of comment frames sent on idle streams.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.keepAlive = d
		}
	}
}

// Broker fans events out to subscribers.
//
// A single event loop owns the subscriber set, the replay history and the
// storage throttle; the public methods talk to it over channels.
type Broker struct {
	storageMin  time.Duration
	historySize int
	keepAlive   time.Duration

	subscribeCh   chan subscribeReq
	unsubscribeCh chan *Subscription
	publishCh     chan Event
	storageCh     chan kvstore.Usage
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that sends at most one storage.updated event per
// storageThrottle. Updates arriving inside the window are coalesced and the
// latest one goes out when the window ends.
func NewBroker(storageThrottle time.Duration, opts ...Option) *Broker {
	if storageThrottle <= 0 {
		storageThrottle = 2 * time.Second
	}

	b := &Broker{
		storageMin:    storageThrottle,
		historySize:   defaultHistory,
		keepAlive:     defaultKeepAlive,
		subscribeCh:   make(chan subscribeReq),
		unsubscribeCh: make(chan *Subscription),
		publishCh:     make(chan Event, 256),
		storageCh:     make(chan kvstore.Usage, 16),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	subs := make(map[*Subscription]struct{})
	var (
		seq         uint64
		history     []frame
		lastStorage time.Time
		pending     *kvstore.Usage
		flush       <-chan time.Time
	)

	deliver := func(s *Subscription, f frame) {
		if !s.wants(f.typ) {
			return
		}
		select {
		case s.ch <- f.data:
		default:
			// Slow client; it can catch up through Last-Event-ID.
		}
	}
	broadcast := func(e Event) {
		payload, err := json.Marshal(e.Data)
		if err != nil {
			return
		}
		seq++
		f := frame{
			seq:  seq,
			typ:  e.Type,
			data: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, e.Type, payload)),
		}
		if b.historySize > 0 {
			if len(history) == b.historySize {
				history = append(history[:0], history[1:]...)
			}
			history = append(history, f)
		}
		for s := range subs {
			deliver(s, f)
		}
	}
	sendStorage := func(u kvstore.Usage) {
		lastStorage = time.Now()
		broadcast(Event{Type: EventStorageUpdated, Data: u})
	}

	for {
		select {
		case <-b.stopCh:
			for s := range subs {
				close(s.ch)
			}
			return

		case req := <-b.subscribeCh:
			subs[req.sub] = struct{}{}
			if req.lastID > 0 {
				for _, f := range history {
					if f.seq > req.lastID {
						deliver(req.sub, f)
					}
				}
			}

		case s := <-b.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.ch)
			}

		case e := <-b.publishCh:
			broadcast(e)

		case u := <-b.storageCh:
			if wait := b.storageMin - time.Since(lastStorage); wait > 0 {
				if pending == nil {
					flush = time.After(wait)
				}
				pending = &u
				continue
			}
			sendStorage(u)

		case <-flush:
			flush = nil
			if pending != nil {
				sendStorage(*pending)
				pending = nil
			}

		case resp := <-b.countReqCh:
			resp <- len(subs)
		}
	}
}

// Close stops the event loop and ends every subscription.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. Events after lastID still in the history are
// replayed first; zero means no replay. An empty types list receives all
// event types.
func (b *Broker) Subscribe(lastID uint64, types ...string) *Subscription {
	ch := make(chan []byte, clientBuffer)
	s := &Subscription{C: ch, ch: ch}
	if len(types) > 0 {
		s.types = make(map[string]bool, len(types))
		for _, t := range types {
			s.types[t] = true
		}
	}

	if b.closed.Load() {
		close(ch)
		return s
	}
	select {
	case b.subscribeCh <- subscribeReq{sub: s, lastID: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return s
}

// Unsubscribe ends s and closes its channel.
func (b *Broker) Unsubscribe(s *Subscription) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- s:
	case <-b.stopped:
	}
}

// ClientCount returns the number of live subscriptions.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish broadcasts e to every subscriber that wants its type.
func (b *Broker) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- e:
	case <-b.stopped:
	}
}

// PublishStateChanged announces the storage keys whose collections changed.
func (b *Broker) PublishStateChanged(keys []string) {
	b.Publish(Event{Type: EventStateChanged, Data: map[string][]string{"keys": keys}})
}

// PublishStorageUpdated announces a new usage estimate, throttled.
func (b *Broker) PublishStorageUpdated(u kvstore.Usage) {
	if b.closed.Load() {
		return
	}
	select {
	case b.storageCh <- u:
	case <-b.stopped:
	}
}

// PublishImportPending announces a staged import bundle.
func (b *Broker) PublishImportPending(token string, p transfer.Preview) {
	b.Publish(Event{Type: EventImportPending, Data: map[string]any{"token": token, "preview": p}})
}

// ServeHTTP is the SSE endpoint (GET /api/events). The optional types query
// parameter is a comma-separated list of event types to receive.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	var lastID uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		lastID, _ = strconv.ParseUint(v, 10, 64)
	}
	var types []string
	for _, t := range strings.Split(r.URL.Query().Get("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", reconnectDelayMS)
	flusher.Flush()

	sub := b.Subscribe(lastID, types...)
	defer b.Unsubscribe(sub)

	ping := time.NewTicker(b.keepAlive)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
