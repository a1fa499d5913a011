package notify

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/autotrader/internal/metrics"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/strategies"
)

type Priority int

const (
	High Priority = iota
	Normal
	Low
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Low:
		return "low"
	default:
		return "normal"
	}
}

// ParsePriority maps "high" and "low"; anything else is Normal.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return High
	case "low":
		return Low
	default:
		return Normal
	}
}

// maxRetryAge bounds how long a failed message keeps being retried.
const maxRetryAge = 5 * time.Minute

// Sender is the chat transport; *Telegram implements it.
type Sender interface {
	GetMe(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, chatID, text string) error
}

// Routes says which event classes reach the chat. Signals and custom
// messages always do.
type Routes struct {
	Trades       bool
	Errors       bool
	DailySummary bool
	Connections  bool
}

type RouteSource interface {
	Notifications() Routes
}

type message struct {
	text     string
	priority Priority
	queued   time.Time
	seq      uint64
}

// queue orders by priority, then by enqueue order.
type queue []*message

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(*message)) }
func (q *queue) Pop() any {
	old := *q
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return m
}

type Info struct {
	Enabled  bool
	Bot      string
	Queued   int
	Sent     int
	Failed   int
	LastSent time.Time
}

// Service queues messages and delivers them from one worker, at most one
// per limiter slot. Every method is safe on a nil *Service.
type Service struct {
	sender  Sender
	chatID  string
	routes  RouteSource
	limiter *rate.Limiter
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	q        queue
	seq      uint64
	enabled  bool
	bot      string
	sent     int
	failed   int
	lastSent time.Time

	wake chan struct{}
	stop context.CancelFunc
	done chan struct{}
}

type Option func(*Service)

func WithRoutes(r RouteSource) Option {
	return func(s *Service) { s.routes = r }
}

func WithLimit(every rate.Limit, burst int) Option {
	return func(s *Service) { s.limiter = rate.NewLimiter(every, burst) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService is enabled when it has a sender and a chat id.
func NewService(sender Sender, chatID string, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		sender:  sender,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		log:     log,
		now:     time.Now,
		enabled: sender != nil && chatID != "",
		wake:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start checks the credentials with getMe and launches the worker. A
// failed check disables the service and is returned; the worker still
// runs so a later Enable can resume delivery.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var err error
	if s.Enabled() {
		err = s.test(ctx)
	}

	wctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.stop = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.worker(wctx, done)
	return err
}

func (s *Service) test(ctx context.Context) error {
	name, err := s.sender.GetMe(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.enabled = false
		s.log.Warn("telegram connection test failed, notifications disabled", zap.Error(err))
		return err
	}
	s.bot = name
	s.log.Info("telegram connected", zap.String("bot", name))
	return nil
}

// Close stops the worker. Queued messages are dropped.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
}

func (s *Service) Enabled() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Enable turns delivery back on after a successful getMe.
func (s *Service) Enable(ctx context.Context) error {
	if s == nil || s.sender == nil || s.chatID == "" {
		return ErrNoCredentials
	}
	s.mu.Lock()
	s.enabled = true
	s.mu.Unlock()
	if err := s.test(ctx); err != nil {
		return err
	}
	s.signal()
	s.log.Info("telegram notifications enabled")
	return nil
}

func (s *Service) Disable() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
	s.log.Info("telegram notifications disabled")
}

// Send queues text and never blocks. It reports whether the message was
// accepted.
func (s *Service) Send(text string, p Priority) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		s.metrics.Notification("dropped")
		return false
	}
	s.pushLocked(&message{text: text, priority: p, queued: s.now()})
	s.mu.Unlock()
	s.signal()
	return true
}

func (s *Service) pushLocked(m *message) {
	if m.seq == 0 {
		s.seq++
		m.seq = s.seq
	}
	heap.Push(&s.q, m)
}

func (s *Service) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Service) pop() *message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.q) == 0 {
		return nil
	}
	return heap.Pop(&s.q).(*message)
}

// Clear drops every queued message and returns how many there were.
func (s *Service) Clear() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	n := len(s.q)
	s.q = nil
	s.mu.Unlock()
	s.log.Info("telegram queue cleared", zap.Int("messages", n))
	return n
}

func (s *Service) Info() Info {
	if s == nil {
		return Info{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		Enabled:  s.enabled,
		Bot:      s.bot,
		Queued:   len(s.q),
		Sent:     s.sent,
		Failed:   s.failed,
		LastSent: s.lastSent,
	}
}

func (s *Service) worker(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		m := s.pop()
		if m != nil && !s.Enabled() {
			s.mu.Lock()
			s.pushLocked(m)
			s.mu.Unlock()
			m = nil
		}
		if m == nil {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.deliver(ctx, m)
	}
}

func (s *Service) deliver(ctx context.Context, m *message) {
	err := s.sender.SendMessage(ctx, s.chatID, Format(m.text, s.now()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.sent++
		s.lastSent = s.now()
		s.metrics.Notification("sent")
		return
	}

	s.failed++
	s.metrics.Notification("failed")
	if s.now().Sub(m.queued) < maxRetryAge {
		s.pushLocked(m)
		s.log.Warn("telegram send failed, requeued", zap.String("priority", m.priority.String()), zap.Error(err))
		return
	}
	s.metrics.Notification("expired")
	s.log.Error("telegram send failed, message dropped", zap.Error(err))
}

func (s *Service) allow(pick func(Routes) bool) bool {
	if s == nil {
		return false
	}
	if s.routes == nil {
		return true
	}
	return pick(s.routes.Notifications())
}

// Trade announces an executed order at high priority.
func (s *Service) Trade(t TradeInfo) bool {
	if !s.allow(func(r Routes) bool { return r.Trades }) {
		return false
	}
	return s.Send(TradeMessage(t), High)
}

// Closed announces a closed position; it follows the trades route.
func (s *Service) Closed(c CloseInfo) bool {
	if !s.allow(func(r Routes) bool { return r.Trades }) {
		return false
	}
	return s.Send(CloseMessage(c), Normal)
}

func (s *Service) Signal(sig strategies.Signal) bool {
	if s == nil {
		return false
	}
	return s.Send(SignalMessage(sig), Normal)
}

func (s *Service) Error(kind, msg string) bool {
	if !s.allow(func(r Routes) bool { return r.Errors }) {
		return false
	}
	return s.Send(ErrorMessage(kind, msg), High)
}

func (s *Service) DailySummary(sum risk.DailySummary) bool {
	if !s.allow(func(r Routes) bool { return r.DailySummary }) {
		return false
	}
	return s.Send(DailySummaryMessage(sum), Normal)
}

func (s *Service) Connection(status, details string) bool {
	if !s.allow(func(r Routes) bool { return r.Connections }) {
		return false
	}
	return s.Send(ConnectionMessage(status, details), Normal)
}

func (s *Service) Custom(title, content string, p Priority) bool {
	if s == nil {
		return false
	}
	return s.Send(CustomMessage(title, content), p)
}
