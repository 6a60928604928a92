package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"holovox/internal/bootstrap"
	"holovox/internal/config"
	"holovox/internal/domain"
	"holovox/internal/usecase"
)

const (
	eventState   = "holovox:state"
	eventLevel   = "holovox:level"
	eventPreview = "holovox:preview"
	eventLog     = "holovox:log"
	eventVisual  = "holovox:visual"
	eventError   = "holovox:error"
)

// App is the Wails application root. It implements ports.EventSink and
// forwards every backend notification to the frontend event bus.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	log        *usecase.ActivityLog
	cfg        config.Config
	logger     *zap.Logger
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.log = services.Log
	a.logger = services.Logger
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonBooted)
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.Stop()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// ToggleSession starts a session when idle or errored, stops it
// otherwise.
func (a *App) ToggleSession() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	return a.controller.Toggle(a.ctx)
}

// StartSession establishes a new live session.
func (a *App) StartSession() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.Start(a.ctx); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopSession ends the current session, if any.
func (a *App) StopSession() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	a.controller.Stop()
	return a.controller.Status(), nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.controller.Status()
}

// GetActivityLog returns the current activity log window.
func (a *App) GetActivityLog() []domain.LogEntry {
	if a.log == nil {
		return nil
	}
	return a.log.Entries()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":         "Gemini Live",
		"model":            a.cfg.Gemini.Model,
		"voice":            a.cfg.Gemini.Voice,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"outputSampleRate": fmt.Sprintf("%d", a.cfg.Session.OutputSampleRate),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	shown := displayState(state, reason)
	runtime.EventsEmit(a.ctx, eventState, map[string]string{
		"state":   string(state),
		"display": string(shown),
		"reason":  string(reason),
		"message": displayMessage(shown),
	})
}

// AudioLevel emits the microphone RMS level for the reactor meter.
func (a *App) AudioLevel(rms float64) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventLevel, map[string]float64{"rms": rms})
}

// TranscriptPreview emits the running transcript buffer for a turn.
func (a *App) TranscriptPreview(direction domain.TranscriptDirection, text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPreview, map[string]string{
		"direction": string(direction),
		"text":      text,
	})
}

// LogAppended emits finalized activity log entries.
func (a *App) LogAppended(entry domain.LogEntry) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventLog, entry)
}

// VisualPayload emits inline images for the hologram pane.
func (a *App) VisualPayload(mimeType string, data []byte) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventVisual, map[string]string{
		"mimeType": mimeType,
		"data":     base64.StdEncoding.EncodeToString(data),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

// displayState maps the connecting window onto the Thinking face the
// UI shows while the assistant is not yet responsive. Reconnection
// keeps its own label so the user can tell a retry from a fresh start.
func displayState(state domain.SessionState, reason domain.SessionStateReason) domain.SessionState {
	if state == domain.SessionStateConnecting && reason != domain.SessionReasonReconnecting {
		return domain.SessionStateThinking
	}
	return state
}

func displayMessage(state domain.SessionState) string {
	switch state {
	case domain.SessionStateIdle:
		return "Standing by"
	case domain.SessionStateConnecting, domain.SessionStateThinking:
		return "Thinking..."
	case domain.SessionStateListening:
		return "Listening"
	case domain.SessionStateSpeaking:
		return "Speaking"
	case domain.SessionStateReconnecting:
		return "Reconnecting..."
	case domain.SessionStateError:
		return "Something went wrong"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeCredential:
		return "Access credential is not configured"
	case domain.ErrorCodeMicrophone:
		return "Microphone unavailable"
	case domain.ErrorCodeAudioOutput:
		return "Audio output unavailable"
	case domain.ErrorCodeChannel:
		return "Connection problem"
	case domain.ErrorCodeAudioSend:
		return "Audio streaming issue"
	case domain.ErrorCodeTeardown:
		return "Session cleanup issue"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
