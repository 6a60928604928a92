package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"holovox/internal/codec"
	"holovox/internal/domain"
	"holovox/internal/ports"
)

const (
	defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultModel    = "models/gemini-2.0-flash-exp"

	handshakeTimeout = 15 * time.Second
)

// Config controls the Gemini Live websocket settings.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

// Provider implements ports.ChannelProvider against the Gemini Live
// bidirectional streaming API.
type Provider struct {
	cfg    Config
	logger *zap.Logger
}

func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg, logger: logger}
}

func (p *Provider) Open(ctx context.Context, cfg ports.ChannelConfig) (ports.Channel, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, fmt.Errorf("open live channel: %w", ports.ErrCredentialMissing)
	}

	wsURL, err := buildLiveURL(p.cfg)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Gemini Live websocket: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = p.cfg.Model
	}
	if err := conn.WriteJSON(newSetupMessage(model, cfg)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to send session setup: %w", err)
	}
	if err := awaitSetupComplete(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	p.logger.Info("live channel established", zap.String("model", model))

	session := &liveSession{
		conn:     conn,
		events:   make(chan domain.ServerEvent, 64),
		outbound: make(chan realtimeInputMessage, 32),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	session.wg.Add(2)
	go session.readLoop()
	go session.writeLoop()
	go func() {
		session.wg.Wait()
		close(session.events)
		close(session.done)
		_ = conn.Close()
	}()

	go func() {
		<-ctx.Done()
		_ = session.Close()
	}()

	return session, nil
}

func awaitSetupComplete(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("session handshake failed: %w", err)
		}
		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.SetupComplete != nil {
			return nil
		}
	}
}

type liveSession struct {
	conn *websocket.Conn

	events   chan domain.ServerEvent
	outbound chan realtimeInputMessage
	stop     chan struct{}
	done     chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (s *liveSession) SendRealtimeInput(blob domain.PCMBlob) error {
	if blob.Base64Data == "" {
		return nil
	}

	msg := realtimeInputMessage{}
	msg.RealtimeInput.MediaChunks = []inlineData{{
		MimeType: blob.MIMEType,
		Data:     blob.Base64Data,
	}}

	select {
	case s.outbound <- msg:
		return nil
	case <-s.stop:
		return errors.New("live channel is closed")
	case <-s.done:
		if err := s.waitErr(); err != nil {
			return err
		}
		return errors.New("live channel is closed")
	}
}

func (s *liveSession) Events() <-chan domain.ServerEvent {
	return s.events
}

func (s *liveSession) Wait() error {
	<-s.done
	return s.waitErr()
}

func (s *liveSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		_ = s.conn.Close()
	})
	<-s.done
	return s.waitErr()
}

func (s *liveSession) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *liveSession) setErr(err error) {
	if err == nil {
		return
	}
	// Errors surfacing after a local close are expected teardown noise.
	select {
	case <-s.stop:
		return
	default:
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *liveSession) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case msg := <-s.outbound:
			if err := s.conn.WriteJSON(msg); err != nil {
				s.setErr(fmt.Errorf("failed to send realtime input: %w", err))
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *liveSession) readLoop() {
	defer s.wg.Done()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read server event: %w", err))
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}

		event, ok := toServerEvent(msg)
		if !ok {
			continue
		}
		s.emit(event)
	}
}

// emit blocks rather than drops: events must reach the consumer in
// arrival order, and skipping a turnComplete or interrupted marker
// would wedge the conversation state.
func (s *liveSession) emit(event domain.ServerEvent) {
	select {
	case s.events <- event:
	case <-s.stop:
	}
}

func toServerEvent(msg serverMessage) (domain.ServerEvent, bool) {
	sc := msg.ServerContent
	if sc == nil {
		return domain.ServerEvent{}, false
	}

	event := domain.ServerEvent{
		TurnComplete: sc.TurnComplete,
		Interrupted:  sc.Interrupted,
	}
	if sc.InputTranscription != nil {
		event.InputTranscript = sc.InputTranscription.Text
	}
	if sc.OutputTranscription != nil {
		event.OutputTranscript = sc.OutputTranscription.Text
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData == nil {
				continue
			}
			raw, err := codec.DecodeBase64(p.InlineData.Data)
			if err != nil {
				continue
			}
			switch {
			case strings.HasPrefix(p.InlineData.MimeType, "audio/"):
				event.Audio = append(event.Audio, raw...)
			case strings.HasPrefix(p.InlineData.MimeType, "image/"):
				event.Visual = &domain.InlineBlob{
					MIMEType: p.InlineData.MimeType,
					Data:     raw,
				}
			}
		}
	}

	empty := event.InputTranscript == "" && event.OutputTranscript == "" &&
		!event.TurnComplete && !event.Interrupted &&
		len(event.Audio) == 0 && event.Visual == nil
	return event, !empty
}

func newSetupMessage(model string, cfg ports.ChannelConfig) setupMessage {
	msg := setupMessage{}
	msg.Setup.Model = model
	msg.Setup.GenerationConfig = &generationConfig{
		ResponseModalities: []string{"AUDIO"},
	}
	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: &voiceConfig{
				PrebuiltVoiceConfig: &prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &content{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}
	for _, tool := range cfg.Tools {
		if tool == "google_search" {
			msg.Setup.Tools = append(msg.Setup.Tools, toolDecl{GoogleSearch: &struct{}{}})
		}
	}
	if cfg.InputTranscription {
		msg.Setup.InputAudioTranscription = &struct{}{}
	}
	if cfg.OutputTranscription {
		msg.Setup.OutputAudioTranscription = &struct{}{}
	}
	return msg
}

func buildLiveURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.Endpoint)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}

	liveURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid Gemini Live endpoint: %w", err)
	}

	query := liveURL.Query()
	query.Set("key", cfg.APIKey)
	liveURL.RawQuery = query.Encode()
	return liveURL.String(), nil
}
