package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"holovox/internal/codec"
	"holovox/internal/domain"
	"holovox/internal/metrics"
	"holovox/internal/ports"
)

// ErrSessionActive is returned by Start while a session is already
// established or being established.
var ErrSessionActive = errors.New("a session is already active")

// Config carries the session parameters resolved at boot.
type Config struct {
	Channel ports.ChannelConfig
	Audio   ports.AudioConfig

	ReconnectBase        time.Duration
	ReconnectCeiling     time.Duration
	MaxReconnectAttempts int
	TeardownCooldown     time.Duration
}

// SessionController owns the session lifecycle: it acquires the
// microphone, opens the channel, runs the capture and event pumps, and
// drives every state transition. All public methods are safe for
// concurrent use; Stop is idempotent.
type SessionController struct {
	capture  ports.AudioCapture
	speakers ports.SpeakerOpener
	provider ports.ChannelProvider
	events   ports.EventSink
	log      *ActivityLog
	logger   *zap.Logger
	metrics  *metrics.Metrics
	cfg      Config

	mu                    sync.Mutex
	state                 domain.SessionState
	current               *activeSession
	connecting            bool
	intentionalDisconnect bool
	attempts              int
	reconnectTimer        sessionTimer
	runCtx                context.Context

	now   func() time.Time
	after func(time.Duration, func()) sessionTimer
	sleep func(time.Duration)
}

func NewSessionController(
	capture ports.AudioCapture,
	speakers ports.SpeakerOpener,
	provider ports.ChannelProvider,
	events ports.EventSink,
	log *ActivityLog,
	logger *zap.Logger,
	m *metrics.Metrics,
	cfg Config,
) *SessionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectCeiling <= 0 {
		cfg.ReconnectCeiling = defaultReconnectCeiling
	}
	if cfg.MaxReconnectAttempts <= 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnects
	}
	if cfg.TeardownCooldown <= 0 {
		cfg.TeardownCooldown = defaultTeardownCooldown
	}
	return &SessionController{
		capture:  capture,
		speakers: speakers,
		provider: provider,
		events:   events,
		log:      log,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		state:    domain.SessionStateIdle,
		now:      time.Now,
		after:    startTimer,
		sleep:    time.Sleep,
	}
}

// Start establishes a new session. It fails with ErrSessionActive when
// one is already running or being set up.
func (c *SessionController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.connecting || c.current != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.intentionalDisconnect = false
	c.attempts = 0
	c.runCtx = ctx
	c.mu.Unlock()

	return c.connect(ctx, domain.SessionReasonConnecting)
}

// Stop tears the current session down and cancels any pending
// reconnection. Calling it with no session running is a no-op.
func (c *SessionController) Stop() {
	c.mu.Lock()
	c.intentionalDisconnect = true
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	active := c.current
	c.current = nil
	c.attempts = 0
	c.mu.Unlock()

	if active != nil {
		c.metrics.SessionActive.Set(0)
		c.teardown(active)
	}
	c.setState(domain.SessionStateIdle, domain.SessionReasonUserDisconnect)
}

// Toggle starts a session when idle or errored, stops it otherwise.
func (c *SessionController) Toggle(ctx context.Context) (domain.Status, error) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case domain.SessionStateIdle, domain.SessionStateError:
		if err := c.Start(ctx); err != nil {
			return c.Status(), err
		}
	default:
		c.Stop()
	}
	return c.Status(), nil
}

// Status reports the current state snapshot.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	active := c.state != domain.SessionStateIdle && c.state != domain.SessionStateError
	return domain.Status{
		State:   c.state,
		Active:  active,
		Attempt: c.attempts,
	}
}

func (c *SessionController) connect(ctx context.Context, reason domain.SessionStateReason) error {
	c.mu.Lock()
	if c.connecting || c.current != nil || c.intentionalDisconnect {
		c.mu.Unlock()
		return nil
	}
	c.connecting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.connecting = false
		c.mu.Unlock()
	}()

	c.setState(domain.SessionStateConnecting, reason)

	audio, err := c.capture.Start(ctx, c.cfg.Audio)
	if err != nil {
		c.logger.Error("microphone acquisition failed", zap.Error(err))
		c.events.SessionError(domain.ErrorCodeMicrophone, err.Error())
		c.setState(domain.SessionStateError, domain.SessionReasonMicrophoneFailed)
		return fmt.Errorf("microphone acquisition failed: %w", err)
	}

	channel, err := c.provider.Open(ctx, c.cfg.Channel)
	if err != nil {
		stopCapture(audio, c.logger)
		if errors.Is(err, ports.ErrCredentialMissing) {
			c.events.SessionError(domain.ErrorCodeCredential, err.Error())
			c.setState(domain.SessionStateError, domain.SessionReasonCredentialMissing)
			return err
		}
		c.logger.Warn("channel open failed", zap.Error(err))
		c.events.SessionError(domain.ErrorCodeChannel, err.Error())
		c.handleChannelFailure()
		return err
	}

	// A user disconnect may have raced the handshake.
	c.mu.Lock()
	if c.intentionalDisconnect {
		c.mu.Unlock()
		closeChannel(channel, c.logger)
		stopCapture(audio, c.logger)
		return nil
	}
	c.mu.Unlock()

	speaker, err := c.speakers.Open(c.cfg.Channel.OutputSampleRate, 1)
	if err != nil {
		closeChannel(channel, c.logger)
		stopCapture(audio, c.logger)
		c.logger.Error("audio output unavailable", zap.Error(err))
		c.events.SessionError(domain.ErrorCodeAudioOutput, err.Error())
		c.setState(domain.SessionStateError, domain.SessionReasonAudioOutputFailed)
		return fmt.Errorf("audio output unavailable: %w", err)
	}

	active := &activeSession{
		audio:      audio,
		channel:    channel,
		speaker:    speaker,
		scheduler:  c.newScheduler(speaker),
		assembler:  newTranscriptAssembler(c.events),
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
	}

	// Publish the session and launch its pumps atomically so a racing
	// Stop either sees no session at all or a fully started one.
	c.mu.Lock()
	if c.intentionalDisconnect {
		c.mu.Unlock()
		closeChannel(channel, c.logger)
		stopCapture(audio, c.logger)
		_ = speaker.Close()
		return nil
	}
	c.current = active
	c.attempts = 0
	go c.consumeChannelEvents(active)
	go pumpCaptureFrames(active.audio, active.channel, c.events, c.logger, c.metrics, active.audioDone)
	c.mu.Unlock()

	c.metrics.SessionsStarted.Inc()
	c.metrics.SessionActive.Set(1)

	c.setState(domain.SessionStateListening, domain.SessionReasonConnected)
	return nil
}

// newScheduler builds the playback scheduler with the controller's
// injected clock so tests drive both from one place.
func (c *SessionController) newScheduler(speaker ports.Speaker) *playbackScheduler {
	s := newPlaybackScheduler(speaker, c.logger)
	s.now = c.now
	s.after = c.after
	return s
}

func (c *SessionController) consumeChannelEvents(active *activeSession) {
	for event := range active.channel.Events() {
		c.handleServerEvent(active, event)
	}
	close(active.eventsDone)
	c.onChannelClosed(active)
}

func (c *SessionController) handleServerEvent(active *activeSession, event domain.ServerEvent) {
	if event.Interrupted {
		active.scheduler.Interrupt()
		c.metrics.PlaybackInterrupts.Inc()
		c.setStateIfCurrent(active, domain.SessionStateListening, domain.SessionReasonInterrupted)
	}
	if len(event.Audio) > 0 {
		chunk := codec.DecodeToChunk(event.Audio, c.cfg.Channel.OutputSampleRate, 1)
		active.scheduler.Enqueue(chunk)
		c.metrics.ChunksScheduled.Inc()
	}
	if event.InputTranscript != "" {
		active.assembler.AddInput(event.InputTranscript)
		c.setStateIfCurrent(active, domain.SessionStateListening, domain.SessionReasonUserSpeech)
	}
	if event.OutputTranscript != "" {
		active.assembler.AddOutput(event.OutputTranscript)
		c.setStateIfCurrent(active, domain.SessionStateSpeaking, domain.SessionReasonAssistantSpeech)
	}
	if event.Visual != nil {
		c.events.VisualPayload(event.Visual.MIMEType, event.Visual.Data)
	}
	if event.TurnComplete {
		entries, _, ok := active.assembler.CompleteTurn()
		if ok {
			for _, entry := range entries {
				c.log.Append(entry.Source, entry.Message)
			}
			c.metrics.TurnsCompleted.Inc()
		}
		c.setStateIfCurrent(active, domain.SessionStateListening, domain.SessionReasonTurnComplete)
	}
}

// onChannelClosed runs exactly once per session, after the events
// channel drains. It decides between reconnection and staying down.
func (c *SessionController) onChannelClosed(active *activeSession) {
	err := active.channel.Wait()

	c.mu.Lock()
	if c.current != active {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("session channel closed", zap.Error(err))
	}
	c.metrics.SessionActive.Set(0)
	c.teardown(active)
	c.handleChannelFailure()
}

// handleChannelFailure schedules the next reconnection attempt or
// gives up once the attempt budget is spent.
func (c *SessionController) handleChannelFailure() {
	c.mu.Lock()
	if c.intentionalDisconnect {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.metrics.ReconnectExhausted.Inc()
		c.events.SessionError(domain.ErrorCodeChannel,
			fmt.Sprintf("connection lost; giving up after %d attempts", c.cfg.MaxReconnectAttempts))
		c.setState(domain.SessionStateError, domain.SessionReasonRetriesExhausted)
		return
	}
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	delay := reconnectDelay(c.cfg.ReconnectBase, c.cfg.ReconnectCeiling, attempt)
	c.metrics.ReconnectAttempts.Inc()
	c.setState(domain.SessionStateReconnecting, domain.SessionReasonChannelLost)
	c.log.Append(domain.LogSourceSystem,
		fmt.Sprintf("Connection lost; retrying in %s (attempt %d/%d)", delay, attempt, c.cfg.MaxReconnectAttempts))
	c.logger.Info("scheduling reconnect",
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay))

	timer := c.after(delay, c.reconnectFire)

	c.mu.Lock()
	if c.intentionalDisconnect {
		timer.Stop()
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = timer
	c.mu.Unlock()
}

func (c *SessionController) reconnectFire() {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.intentionalDisconnect || c.connecting || c.current != nil {
		c.mu.Unlock()
		return
	}
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.connect(ctx, domain.SessionReasonReconnecting); err != nil {
		c.logger.Warn("reconnect attempt failed", zap.Error(err))
	}
}

// teardown releases every resource the session holds. It is safe to
// call from multiple paths; only the first call does the work. The
// fixed cool-down at the end gives the audio device and the remote
// endpoint time to settle before any new connection attempt.
func (c *SessionController) teardown(active *activeSession) {
	active.teardownOnce.Do(func() {
		stopCapture(active.audio, c.logger)
		closeChannel(active.channel, c.logger)
		<-active.audioDone
		<-active.eventsDone
		active.scheduler.Stop()
		if err := active.speaker.Close(); err != nil {
			c.logger.Warn("speaker close failed", zap.Error(err))
		}
		c.sleep(c.cfg.TeardownCooldown)
	})
}

func (c *SessionController) setState(state domain.SessionState, reason domain.SessionStateReason) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.announce(state, reason)
}

// setStateIfCurrent applies an event-driven transition only while the
// originating session is still the live one, so a drained event queue
// can never flip state after teardown.
func (c *SessionController) setStateIfCurrent(active *activeSession, state domain.SessionState, reason domain.SessionStateReason) {
	c.mu.Lock()
	if c.current != active || c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.announce(state, reason)
}

func (c *SessionController) announce(state domain.SessionState, reason domain.SessionStateReason) {
	c.events.SessionStateChanged(state, reason)
	c.log.Append(domain.LogSourceSystem, stateMessage(state, reason))
	c.logger.Info("session state changed",
		zap.String("state", string(state)),
		zap.String("reason", string(reason)))
}

func stateMessage(state domain.SessionState, reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonConnecting:
		return "Connecting..."
	case domain.SessionReasonReconnecting:
		return "Reconnecting..."
	case domain.SessionReasonConnected:
		return "Session established"
	case domain.SessionReasonUserSpeech:
		return "Listening"
	case domain.SessionReasonAssistantSpeech:
		return "Assistant speaking"
	case domain.SessionReasonTurnComplete:
		return "Turn complete"
	case domain.SessionReasonInterrupted:
		return "Playback interrupted"
	case domain.SessionReasonChannelLost:
		return "Connection lost"
	case domain.SessionReasonUserDisconnect:
		return "Session ended"
	case domain.SessionReasonRetriesExhausted:
		return "Connection failed after repeated attempts"
	case domain.SessionReasonCredentialMissing:
		return "Access credential is not configured"
	case domain.SessionReasonMicrophoneFailed:
		return "Microphone unavailable"
	case domain.SessionReasonAudioOutputFailed:
		return "Audio output unavailable"
	}
	return fmt.Sprintf("State changed to %s", state)
}

func stopCapture(audio ports.AudioSession, logger *zap.Logger) {
	if err := audio.Stop(); err != nil {
		logger.Warn("audio capture stop failed", zap.Error(err))
	}
}

func closeChannel(channel ports.Channel, logger *zap.Logger) {
	if err := channel.Close(); err != nil {
		logger.Warn("channel close failed", zap.Error(err))
	}
}
