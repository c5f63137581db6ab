package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Handler processes a single message from a topic mailbox. A returned error
// is logged and the message is considered delivered; it is never re-queued.
type Handler func(ctx context.Context, msg any) error

// Config controls the supervisory policy for consumers.
type Config struct {
	// MaxFaults is the number of recovered handler panics tolerated within
	// FaultWindow before the consumer is torn down for good.
	MaxFaults   int
	FaultWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFaults:   3,
		FaultWindow: 3 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.MaxFaults <= 0 {
		c.MaxFaults = defaults.MaxFaults
	}
	if c.FaultWindow <= 0 {
		c.FaultWindow = defaults.FaultWindow
	}
	return c
}

var (
	ErrNilHandler          = errors.New("bus: nil handler")
	ErrDuplicateConsumer   = errors.New("bus: consumer already subscribed to topic")
	ErrBusStopped          = errors.New("bus: stopped")
	errConsumerTornDown    = errors.New("bus: consumer torn down")
	errSubscriptionStopped = errors.New("bus: subscription stopped")
)

// Bus is an in-process publish/subscribe layer. Every (topic, consumer)
// pair owns an unbounded FIFO mailbox drained by a single goroutine, so a
// consumer never processes two messages concurrently, while distinct
// consumers of the same topic run in parallel.
type Bus struct {
	log *zap.Logger
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	subs    map[string][]*subscription
}

func New(log *zap.Logger, cfg Config) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		log:    log.Named("bus"),
		cfg:    cfg.withDefaults(),
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[string][]*subscription),
	}
}

// Subscribe registers one handler for a consumer role on a topic and starts
// its mailbox loop. Registration problems are surfaced immediately; they are
// the unrecoverable initialization errors of a consumer.
func (b *Bus) Subscribe(topic, consumer string, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return ErrBusStopped
	}
	for _, sub := range b.subs[topic] {
		if sub.consumer == consumer {
			return fmt.Errorf("%w: %s/%s", ErrDuplicateConsumer, topic, consumer)
		}
	}

	sub := newSubscription(b, topic, consumer, h)
	b.subs[topic] = append(b.subs[topic], sub)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		sub.run()
	}()
	return nil
}

// Publish fans the message out to every consumer of the topic. It never
// blocks the caller; mailboxes are unbounded.
func (b *Bus) Publish(topic string, msg any) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	targets := b.subs[topic]
	b.mu.Unlock()

	if len(targets) == 0 {
		b.log.Debug("no consumers for topic", zap.String("topic", topic))
		return
	}
	for _, sub := range targets {
		sub.enqueue(msg)
	}
}

// Stop shuts the bus down. In-flight handlers finish; queued messages are
// dropped.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	var all []*subscription
	for _, subs := range b.subs {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	b.cancel()
	for _, sub := range all {
		sub.stop(errSubscriptionStopped)
	}
	b.wg.Wait()
}

type subscription struct {
	bus      *Bus
	topic    string
	consumer string
	handler  Handler
	log      *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []any
	stopErr error
	faults  []time.Time
}

func newSubscription(b *Bus, topic, consumer string, h Handler) *subscription {
	sub := &subscription{
		bus:      b,
		topic:    topic,
		consumer: consumer,
		handler:  h,
		log: b.log.With(
			zap.String("topic", topic),
			zap.String("consumer", consumer),
		),
	}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

func (s *subscription) enqueue(msg any) {
	s.mu.Lock()
	if s.stopErr == nil {
		s.queue = append(s.queue, msg)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *subscription) stop(reason error) {
	s.mu.Lock()
	if s.stopErr == nil {
		s.stopErr = reason
		s.queue = nil
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *subscription) run() {
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && s.stopErr == nil {
			s.cond.Wait()
		}
		if s.stopErr != nil {
			s.mu.Unlock()
			return
		}
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.deliver(msg)
	}
}

// deliver runs the handler for one message, isolating panics so the mailbox
// keeps draining. Repeated panics within the fault window trip the
// supervisor and tear this consumer down.
func (s *subscription) deliver(msg any) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("consumer panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			s.recordFault()
		}
	}()

	if err := s.handler(s.bus.ctx, msg); err != nil {
		s.log.Warn("consumer handler failed", zap.Error(err))
	}
}

func (s *subscription) recordFault() {
	now := time.Now()
	cutoff := now.Add(-s.bus.cfg.FaultWindow)

	s.mu.Lock()
	kept := s.faults[:0]
	for _, at := range s.faults {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	s.faults = append(kept, now)
	tripped := len(s.faults) > s.bus.cfg.MaxFaults
	s.mu.Unlock()

	if tripped {
		s.log.Error("consumer exceeded fault budget, tearing down",
			zap.Int("max_faults", s.bus.cfg.MaxFaults),
			zap.Duration("window", s.bus.cfg.FaultWindow),
		)
		s.stop(errConsumerTornDown)
	}
}

var Module = fx.Module("bus",
	fx.Provide(DefaultConfig),
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, b *Bus) {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				b.Stop()
				return nil
			},
		})
	}),
)
