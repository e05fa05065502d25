package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/fPolic/Connect4-MPI/message"
)

const (
	fromHeader    = "Connect4-From"
	natsChanDepth = 1024
)

// Subjects derives the NATS subjects used under a prefix.
type Subjects struct {
	Prefix string
}

func (s Subjects) Coordinator() string  { return s.Prefix + ".coordinator" }
func (s Subjects) Worker(id int) string { return s.Prefix + ".worker." + strconv.Itoa(id) }
func (s Subjects) Ready() string        { return s.Prefix + ".ready" }
func (s Subjects) Shutdown() string     { return s.Prefix + ".shutdown" }

// DialNATS connects to url, retrying until the server answers or ctx ends.
func DialNATS(ctx context.Context, url, name string) (*nats.Conn, error) {
	var nc *nats.Conn
	err := retry.Do(
		func() error {
			var err error
			nc, err = nats.Connect(url,
				nats.Name(name),
				nats.MaxReconnects(-1),
				nats.ErrorHandler(logAsyncError))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(250*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.OnRetry(func(n uint, err error) {
			log.Warn().Err(err).Uint("attempt", n).Str("url", url).Msg("nats-connect-retry")
		}),
	)
	if err != nil {
		return nil, err
	}
	return nc, nil
}

// logAsyncError reports errors the client hits outside any call, such as a
// subscription channel falling behind.
func logAsyncError(nc *nats.Conn, sub *nats.Subscription, err error) {
	ev := log.Error().Err(err)
	if errors.Is(err, nats.ErrSlowConsumer) {
		ev = log.Warn().Err(err)
	}
	if sub != nil {
		ev = ev.Str("subject", sub.Subject)
	}
	if nc != nil {
		ev = ev.Str("conn", nc.Opts.Name)
	}
	ev.Msg("nats-async-error")
}

// NATSHub is a Hub over NATS core subjects. One subject per worker keeps
// the coordinator-to-worker stream ordered.
type NATSHub struct {
	nc       *nats.Conn
	subjects Subjects
	ids      []int
	inbox    chan *nats.Msg
	sub      *nats.Subscription
}

// NewNATSHub subscribes to the coordinator subject and waits until the
// expected number of distinct workers announced themselves on the ready
// subject.
func NewNATSHub(ctx context.Context, nc *nats.Conn, prefix string, workers int) (*NATSHub, error) {
	h := &NATSHub{
		nc:       nc,
		subjects: Subjects{Prefix: prefix},
		inbox:    make(chan *nats.Msg, natsChanDepth),
	}
	var err error
	h.sub, err = nc.ChanSubscribe(h.subjects.Coordinator(), h.inbox)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	seen := map[int]bool{}
	all := make(chan struct{})
	readySub, err := nc.Subscribe(h.subjects.Ready(), func(m *nats.Msg) {
		id, err := strconv.Atoi(string(m.Data))
		if err != nil || id <= CoordinatorID {
			log.Warn().Str("data", string(m.Data)).Msg("bad-ready-announcement")
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if len(seen) == workers && !seen[id] {
			log.Warn().Int("worker", id).Msg("pool already full; ignoring worker")
			return
		}
		if !seen[id] {
			seen[id] = true
			h.ids = append(h.ids, id)
			log.Info().Int("worker", id).Int("joined", len(seen)).Int("expected", workers).Msg("worker-ready")
			if len(seen) == workers {
				close(all)
			}
		}
		m.Respond([]byte("ok"))
	})
	if err != nil {
		h.sub.Unsubscribe()
		return nil, err
	}
	defer readySub.Unsubscribe()

	select {
	case <-all:
	case <-ctx.Done():
		h.sub.Unsubscribe()
		return nil, ctx.Err()
	}
	return h, nil
}

func (h *NATSHub) Workers() []int {
	return append([]int(nil), h.ids...)
}

func (h *NATSHub) publish(subject string, m message.Message) error {
	data, err := message.Marshal(m)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(fromHeader, strconv.Itoa(CoordinatorID))
	return h.nc.PublishMsg(msg)
}

func (h *NATSHub) Broadcast(ctx context.Context, m message.Message) error {
	for _, id := range h.ids {
		if err := h.Send(ctx, id, m); err != nil {
			return err
		}
	}
	return nil
}

func (h *NATSHub) Send(ctx context.Context, worker int, m message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	known := false
	for _, id := range h.ids {
		known = known || id == worker
	}
	if !known {
		return fmt.Errorf("%w: %d", ErrUnknownWorker, worker)
	}
	return h.publish(h.subjects.Worker(worker), m)
}

func (h *NATSHub) Recv(ctx context.Context) (Envelope, error) {
	select {
	case msg := <-h.inbox:
		from, err := strconv.Atoi(msg.Header.Get(fromHeader))
		if err != nil {
			return Envelope{}, fmt.Errorf("missing sender on %s: %w", msg.Subject, err)
		}
		m, err := message.Unmarshal(msg.Data)
		if err != nil {
			return Envelope{}, fmt.Errorf("from worker %d: %w", from, err)
		}
		return Envelope{From: from, Msg: m}, nil
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Close tells the workers to exit and drops the subscription. The NATS
// connection stays open; it belongs to the caller.
func (h *NATSHub) Close() error {
	if err := h.nc.Publish(h.subjects.Shutdown(), nil); err != nil {
		return err
	}
	if err := h.nc.Flush(); err != nil {
		return err
	}
	return h.sub.Unsubscribe()
}

// NATSLink is a worker's end over NATS.
type NATSLink struct {
	id       int
	nc       *nats.Conn
	subjects Subjects
	inbox    chan *nats.Msg
	subs     []*nats.Subscription

	done     chan struct{}
	doneOnce sync.Once
}

// NewNATSLink subscribes worker id to its subject and announces it on the
// ready subject, retrying until a coordinator acknowledges.
func NewNATSLink(ctx context.Context, nc *nats.Conn, prefix string, id int) (*NATSLink, error) {
	if id <= CoordinatorID {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWorker, id)
	}
	l := &NATSLink{
		id:       id,
		nc:       nc,
		subjects: Subjects{Prefix: prefix},
		inbox:    make(chan *nats.Msg, natsChanDepth),
		done:     make(chan struct{}),
	}
	sub, err := nc.ChanSubscribe(l.subjects.Worker(id), l.inbox)
	if err != nil {
		return nil, err
	}
	l.subs = append(l.subs, sub)
	sub, err = nc.Subscribe(l.subjects.Shutdown(), func(*nats.Msg) {
		l.doneOnce.Do(func() { close(l.done) })
	})
	if err != nil {
		l.unsubscribe()
		return nil, err
	}
	l.subs = append(l.subs, sub)

	err = retry.Do(
		func() error {
			reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			_, err := nc.RequestWithContext(reqCtx, l.subjects.Ready(), []byte(strconv.Itoa(id)))
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("attempt", n).Int("worker", id).Msg("waiting-for-coordinator")
		}),
	)
	if err != nil {
		l.unsubscribe()
		return nil, err
	}
	return l, nil
}

func (l *NATSLink) unsubscribe() {
	for _, s := range l.subs {
		s.Unsubscribe()
	}
}

func (l *NATSLink) ID() int { return l.id }

func (l *NATSLink) Send(ctx context.Context, m message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-l.done:
		return ErrShutdown
	default:
	}
	data, err := message.Marshal(m)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(l.subjects.Coordinator())
	msg.Data = data
	msg.Header.Set(fromHeader, strconv.Itoa(l.id))
	return l.nc.PublishMsg(msg)
}

func (l *NATSLink) Recv(ctx context.Context) (message.Message, error) {
	select {
	case msg := <-l.inbox:
		return message.Unmarshal(msg.Data)
	case <-l.done:
		l.unsubscribe()
		return nil, ErrShutdown
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
