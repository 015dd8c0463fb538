package recognition

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"github.com/xpanvictor/interm/internal/observability"
	"github.com/xpanvictor/interm/pkg/Logger"
	"github.com/xpanvictor/interm/pkg/io/stt"
	audioring "github.com/xpanvictor/interm/pkg/io/stt/audioRing"
	"github.com/xpanvictor/interm/pkg/resilience"
)

var (
	ErrNotIdle = errors.New("recognition session already running")
	ErrClosed  = errors.New("recognition manager closed")
)

type Config struct {
	StreamingLimit time.Duration
	Stream         stt.StreamConfig
	// pause between tearing down a sub-session and opening the next
	RestartSettle time.Duration
	OpenRetry     *resilience.RetryConfig
	InboxSize     int
	// minimum capacity of the current chunk generation; New raises it to
	// cover StreamingLimit
	ChunkLogBytes int
}

func DefaultConfig() Config {
	return Config{
		StreamingLimit: 60 * time.Second,
		Stream:         stt.DefaultStreamConfig(),
		RestartSettle:  100 * time.Millisecond,
		OpenRetry:      resilience.DefaultRetryConfig(),
		InboxSize:      1024,
		// a little over two minutes of 16 kHz s16le mono
		ChunkLogBytes: 4 << 20,
	}
}

type command struct {
	kind  stateEvent
	reply chan error
}

// streamMsg carries stream output into the loop tagged with the
// generation of the sub-session it came from.
type streamMsg struct {
	gen    int
	result *stt.Result
	err    error
	ended  bool
}

type openResult struct {
	gen    int
	stream stt.Stream
	err    error
}

// Manager keeps one logical transcript alive across the bounded
// sub-sessions of a streaming recognizer. All mutable session state is
// owned by the run loop goroutine.
type Manager struct {
	cfg    Config
	rec    stt.Recognizer
	logger *Logger.Logger

	active atomic.Bool
	inbox  chan []byte
	cmds   chan command
	fromSt chan streamMsg
	opened chan openResult
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
	loopDone  chan struct{}

	snapMu sync.RWMutex
	snap   Timeline

	// loop owned
	machine      *fsm.FSM
	chunks       *audioring.ChunkLog
	stream       stt.Stream
	gen          int
	tl           Timeline
	restartTimer *time.Timer
	settleTimer  *time.Timer
	pendingStart chan error
	openCancel   context.CancelFunc
}

func New(cfg Config, rec stt.Recognizer, logger *Logger.Logger) *Manager {
	def := DefaultConfig()
	if cfg.StreamingLimit <= 0 {
		cfg.StreamingLimit = def.StreamingLimit
	}
	if cfg.Stream.SampleRateHz == 0 {
		cfg.Stream = def.Stream
	}
	if cfg.OpenRetry == nil {
		cfg.OpenRetry = def.OpenRetry
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = def.InboxSize
	}
	if cfg.ChunkLogBytes <= 0 {
		cfg.ChunkLogBytes = def.ChunkLogBytes
	}
	// previous must span the whole limit or bridging misjudges chunk time
	if need := audioring.CapacityFor(cfg.StreamingLimit, cfg.Stream.SampleRateHz); cfg.ChunkLogBytes < need {
		cfg.ChunkLogBytes = need
	}

	m := &Manager{
		cfg:      cfg,
		rec:      rec,
		logger:   logger.Named("recognition"),
		inbox:    make(chan []byte, cfg.InboxSize),
		cmds:     make(chan command),
		fromSt:   make(chan streamMsg, 64),
		opened:   make(chan openResult, 1),
		events:   make(chan Event, 256),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		chunks:   audioring.NewChunkLog(cfg.ChunkLogBytes, cfg.Stream.SampleRateHz),
	}
	m.machine = newStateMachine(m.onStateChange)

	go m.run()
	return m
}

// Events delivers results, errors and lifecycle changes in order. The
// channel is closed by Close.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) State() State {
	return State(m.machine.Current())
}

// Snapshot returns the timeline as of the last processed message.
func (m *Manager) Snapshot() Timeline {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	return m.snap
}

func (m *Manager) StreamingLimitMs() int64 {
	return m.cfg.StreamingLimit.Milliseconds()
}

// Start opens sub-session zero and returns once it is live.
func (m *Manager) Start(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case m.cmds <- command{kind: evStart, reply: reply}:
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		// the loop still owns the session, make sure it does not linger
		m.Stop()
		return ctx.Err()
	}
}

// Push hands a captured chunk to the session. It never blocks; when the
// loop falls behind the chunk is dropped.
func (m *Manager) Push(chunk []byte) {
	if !m.active.Load() {
		return
	}
	select {
	case m.inbox <- chunk:
	default:
		observability.RecordDroppedChunk("inbox_full")
		m.logger.Warn("recognition inbox full, dropping audio chunk")
	}
}

// Stop ends the session. Calling it while idle is a no-op.
func (m *Manager) Stop() {
	// anything still in flight sees inactive and bails
	m.active.Store(false)

	reply := make(chan error, 1)
	select {
	case m.cmds <- command{kind: evStop, reply: reply}:
	case <-m.done:
		return
	}
	select {
	case <-reply:
	case <-m.done:
	}
}

// Close stops any session and the run loop.
func (m *Manager) Close() {
	m.Stop()
	m.closeOnce.Do(func() {
		close(m.done)
		<-m.loopDone
		close(m.events)
	})
}

func (m *Manager) run() {
	defer close(m.loopDone)

	for {
		select {
		case <-m.done:
			m.teardown()
			return

		case cmd := <-m.cmds:
			m.handleCommand(cmd)

		case chunk := <-m.inbox:
			m.handleChunk(chunk)

		case msg := <-m.fromSt:
			m.handleStreamMsg(msg)

		case res := <-m.opened:
			m.handleOpened(res)

		case <-timerC(m.restartTimer):
			m.restartTimer = nil
			m.beginRestart("timer")

		case <-timerC(m.settleTimer):
			m.settleTimer = nil
			m.openAsync()
		}
	}
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (m *Manager) handleCommand(cmd command) {
	switch cmd.kind {
	case evStart:
		if m.State() != Idle {
			cmd.reply <- ErrNotIdle
			return
		}
		m.tl = Timeline{}
		m.chunks.Reset()
		m.publishSnapshot()
		m.active.Store(true)
		m.fire(evStart)
		m.pendingStart = cmd.reply
		m.openAsync()

	case evStop:
		m.active.Store(false)
		if m.State() != Idle {
			m.teardown()
			m.fire(evStop)
		}
		cmd.reply <- nil
	}
}

func (m *Manager) handleChunk(chunk []byte) {
	if !m.active.Load() {
		return
	}
	if err := m.chunks.Append(chunk); err != nil {
		m.logger.Warnf("failed to log audio chunk: %v", err)
	}
	observability.RecordAudioBytes(len(chunk))

	if m.State() == Streaming && m.stream != nil {
		m.send(chunk)
	}
}

// send writes to the live stream. A closed stream is a benign race.
func (m *Manager) send(chunk []byte) {
	err := m.stream.Send(chunk)
	switch {
	case err == nil:
	case errors.Is(err, stt.ErrStreamClosed):
	case errors.Is(err, stt.ErrSendQueueFull):
		observability.RecordDroppedChunk("send_queue_full")
		m.logger.Debug("recognizer send queue full, chunk dropped")
	default:
		m.logger.Warnf("audio write failed: %v", err)
	}
}

func (m *Manager) handleStreamMsg(msg streamMsg) {
	if msg.gen != m.gen || !m.active.Load() {
		return
	}

	switch {
	case msg.result != nil:
		r := *msg.result
		m.tl.ResultEndTimeMs = r.ResultEndTime.Milliseconds()
		if r.IsFinal {
			m.tl.IsFinalEndTimeMs = m.tl.ResultEndTimeMs
		}
		m.publishSnapshot()
		observability.RecordResult(r.IsFinal)
		m.emit(Event{Type: EventResult, Result: r, Timeline: m.tl})

	case msg.err != nil:
		if errors.Is(msg.err, stt.ErrStreamDurationExceeded) {
			m.logger.Infof("sub-session %d hit the duration limit, restarting", m.tl.RestartCounter)
			m.beginRestart("duration_exceeded")
			return
		}
		m.logger.Errorf("recognition stream error: %v", msg.err)
		observability.RecordError("stream", "recognition")
		m.emit(Event{Type: EventError, Err: &TranscriptionApiError{Cause: msg.err, SubSession: m.tl.RestartCounter}})

	case msg.ended:
		// left for the timer or an explicit stop
		m.logger.Debugf("sub-session %d stream ended", m.tl.RestartCounter)
	}
}

// beginRestart retires the live sub-session and schedules the next one.
func (m *Manager) beginRestart(trigger string) {
	if m.State() != Streaming || !m.active.Load() {
		return
	}
	m.fire(evRestart)
	m.retireStream()

	if m.tl.ResultEndTimeMs > 0 {
		m.tl.FinalRequestEndTimeMs = m.tl.IsFinalEndTimeMs
	}
	m.tl.ResultEndTimeMs = 0
	m.chunks.Rotate()
	m.tl.RestartCounter++
	m.publishSnapshot()

	observability.RecordRestart(trigger)
	m.emit(Event{Type: EventRestarted, Trigger: trigger, Timeline: m.tl})

	if m.cfg.RestartSettle > 0 {
		m.settleTimer = time.NewTimer(m.cfg.RestartSettle)
		return
	}
	m.openAsync()
}

// openAsync opens the next sub-session off the loop so audio keeps
// flowing into the chunk log meanwhile.
func (m *Manager) openAsync() {
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.openCancel = cancel

	go func() {
		var s stt.Stream
		err := resilience.Retry(ctx, func(ctx context.Context) error {
			var err error
			s, err = m.rec.Open(ctx, m.cfg.Stream)
			if err != nil {
				m.logger.Warnf("failed to open %s stream: %v", m.rec.Name(), err)
			}
			return err
		}, m.cfg.OpenRetry, nil)

		select {
		case m.opened <- openResult{gen: gen, stream: s, err: err}:
		case <-m.done:
			if s != nil {
				s.Close()
			}
		}
	}()
}

func (m *Manager) handleOpened(res openResult) {
	if res.gen != m.gen || !m.active.Load() {
		if res.stream != nil {
			res.stream.Close()
		}
		return
	}
	m.openCancel = nil

	if res.err != nil {
		m.logger.Errorf("could not open recognition stream: %v", res.err)
		observability.RecordError("open", "recognition")
		apiErr := &TranscriptionApiError{Cause: res.err, SubSession: m.tl.RestartCounter}
		reply := m.pendingStart
		m.pendingStart = nil

		m.active.Store(false)
		m.teardown()
		m.fire(evStop)

		if reply != nil {
			reply <- apiErr
		} else {
			m.emit(Event{Type: EventError, Err: apiErr})
		}
		return
	}

	m.stream = res.stream
	go m.forward(res.gen, res.stream)

	if m.State() == Restarting {
		replay, offset := BridgeReplay(m.chunks.Previous(), m.StreamingLimitMs(), m.tl.FinalRequestEndTimeMs, m.tl.BridgingOffsetMs)
		m.tl.BridgingOffsetMs = offset
		for _, c := range replay {
			m.send(c)
		}
		m.chunks.DiscardPrevious()
		observability.RecordReplay(len(replay))
		m.publishSnapshot()
		m.logger.Debugf("sub-session %d: replayed %d chunks, bridging offset %dms", m.tl.RestartCounter, len(replay), offset)
		m.fire(evResume)
	}

	// whatever arrived while the stream was opening
	for _, c := range m.chunks.Current() {
		m.send(c.Data)
	}

	m.restartTimer = time.NewTimer(m.cfg.StreamingLimit)
	if m.pendingStart != nil {
		m.pendingStart <- nil
		m.pendingStart = nil
	}
}

// forward pumps one stream into the loop until it ends.
func (m *Manager) forward(gen int, s stt.Stream) {
	results, errs := s.Results(), s.Errors()
	for {
		var msg streamMsg
		select {
		case r, ok := <-results:
			if !ok {
				msg = streamMsg{gen: gen, ended: true}
			} else {
				msg = streamMsg{gen: gen, result: &r}
			}
		case err := <-errs:
			msg = streamMsg{gen: gen, err: err}
		case <-m.done:
			return
		}

		select {
		case m.fromSt <- msg:
		case <-m.done:
			return
		}
		if msg.ended {
			return
		}
	}
}

// retireStream detaches and closes the live stream. Bumping the
// generation first means nothing it still produces reaches the caller.
func (m *Manager) retireStream() {
	if m.restartTimer != nil {
		m.restartTimer.Stop()
		m.restartTimer = nil
	}
	m.gen++
	if m.stream != nil {
		if err := m.stream.Close(); err != nil {
			m.logger.Warnf("error closing recognition stream: %v", err)
		}
		m.stream = nil
	}
}

// teardown releases everything a session holds. Errors are logged and
// swallowed.
func (m *Manager) teardown() {
	if m.openCancel != nil {
		m.openCancel()
		m.openCancel = nil
	}
	if m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}
	m.retireStream()
	m.chunks.Reset()
	if m.pendingStart != nil {
		m.pendingStart <- ErrClosed
		m.pendingStart = nil
	}
}

func (m *Manager) fire(ev stateEvent) {
	if err := m.machine.Event(context.Background(), string(ev)); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			m.logger.Warnf("state transition %s from %s rejected: %v", ev, m.State(), err)
		}
	}
}

func (m *Manager) onStateChange(from, to State) {
	switch {
	case from == Idle && to == Streaming:
		observability.SessionStarted()
	case to == Idle:
		observability.SessionStopped()
	}
	m.emit(Event{Type: EventStateChanged, From: from, To: to, Timeline: m.tl})
}

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

func (m *Manager) publishSnapshot() {
	m.snapMu.Lock()
	m.snap = m.tl
	m.snapMu.Unlock()
}
