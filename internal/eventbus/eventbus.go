package eventbus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed возвращается при публикации в закрытую шину
var ErrClosed = errors.New("event bus closed")

// Приоритеты событий мира. При переполнении очереди события ниже PriorityStructure отбрасываются.
const (
	PriorityStream    = 3 // загрузка и выгрузка чанков
	PriorityStructure = 5 // постройка структур
	PriorityEdit      = 6 // правки игрока
)

// mailboxSize — очередь одного подписчика
const mailboxSize = 256

// Envelope конверт события мира
type Envelope struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"` // имя мира
	EventType     string            `json:"event_type"`
	Version       int               `json:"version"`                  // версия схемы Payload
	CorrelationID string            `json:"correlation_id,omitempty"` // номер тика
	Priority      int               `json:"priority"`
	Payload       []byte            `json:"payload"` // JSON, возможно сжатый zstd
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter отбирает события по типу и источнику; пустой список пропускает всё
type Filter struct {
	Types   []string
	Sources []string
}

func (f Filter) match(ev *Envelope) bool {
	return (len(f.Types) == 0 || slices.Contains(f.Types, ev.EventType)) &&
		(len(f.Sources) == 0 || slices.Contains(f.Sources, ev.Source))
}

// Subscription позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события
type Handler func(ctx context.Context, ev *Envelope)

// Stats счётчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus шина событий мира: in-memory или NATS JetStream
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

// memoryBus доставляет события каждому подписчику в порядке публикации
type memoryBus struct {
	mu     sync.RWMutex
	subs   map[int]*mailbox
	nextID int
	closed bool

	queue chan *Envelope
	done  chan struct{}

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// mailbox очередь и обработчик одного подписчика
type mailbox struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	events  chan *Envelope
	done    chan struct{}
}

// NewMemoryBus создаёт in-memory шину с общей очередью ёмкостью capacity
func NewMemoryBus(capacity int) EventBus {
	mb := &memoryBus{
		subs:  make(map[int]*mailbox),
		queue: make(chan *Envelope, capacity),
		done:  make(chan struct{}),
	}
	go mb.dispatch()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return ErrClosed
	}

	select {
	case mb.queue <- ev:
		mb.published.Add(1)
		return nil
	default:
	}

	if ev.Priority < PriorityStructure {
		mb.dropped.Add(1)
		return nil
	}
	select {
	case mb.queue <- ev:
		mb.published.Add(1)
		return nil
	case <-ctx.Done():
		mb.dropped.Add(1)
		return ctx.Err()
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrClosed
	}

	cctx, cancel := context.WithCancel(ctx)
	box := &mailbox{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		events:  make(chan *Envelope, mailboxSize),
		done:    make(chan struct{}),
	}
	id := mb.nextID
	mb.nextID++
	mb.subs[id] = box
	go box.run(&mb.consumed)

	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  len(mb.queue),
	}
}

// Close перестаёт принимать события, доставляет уже принятые и отписывает всех
func (mb *memoryBus) Close() error {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return nil
	}
	mb.closed = true
	close(mb.queue)
	mb.mu.Unlock()

	<-mb.done

	mb.mu.Lock()
	subs := mb.subs
	mb.subs = make(map[int]*mailbox)
	mb.mu.Unlock()

	for _, box := range subs {
		close(box.events)
		<-box.done
		box.cancel()
	}
	return nil
}

// dispatch раскладывает события из общей очереди по ящикам подписчиков
func (mb *memoryBus) dispatch() {
	defer close(mb.done)
	for ev := range mb.queue {
		mb.mu.RLock()
		for _, box := range mb.subs {
			if !box.filter.match(ev) {
				continue
			}
			if !box.deliver(ev) {
				mb.dropped.Add(1)
			}
		}
		mb.mu.RUnlock()
	}
}

// deliver кладёт событие в ящик. Низкий приоритет не ждёт медленного подписчика.
func (b *mailbox) deliver(ev *Envelope) bool {
	select {
	case b.events <- ev:
		return true
	default:
	}
	if ev.Priority < PriorityStructure {
		return false
	}
	select {
	case b.events <- ev:
		return true
	case <-b.ctx.Done():
		return false
	}
}

func (b *mailbox) run(consumed *atomic.Uint64) {
	defer close(b.done)
	for {
		select {
		case ev, ok := <-b.events:
			if !ok {
				return
			}
			b.handler(b.ctx, ev)
			consumed.Add(1)
		case <-b.ctx.Done():
			return
		}
	}
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.RLock()
	box, ok := s.bus.subs[s.id]
	s.bus.mu.RUnlock()
	if !ok {
		return
	}
	// отмена раньше блокировки: dispatch может ждать места в этом ящике
	box.cancel()

	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
}
