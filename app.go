package main

import (
	"context"
	"encoding/base64"
	"log"
	"os"
	"sync"

	"github.com/chazu/geoview/pkg/engine"
	"github.com/chazu/geoview/pkg/viewer"
	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// desktopConn is the connection id of the single webview client.
const desktopConn = "desktop"

// Events emitted to the frontend.
const (
	EventText   = "geom:text"
	EventBinary = "geom:binary" // payload is base64
)

// App is the Wails backend. It exposes methods to the frontend via bindings
// and answers viewer requests through frontend events.
type App struct {
	ctx    context.Context
	engine *engine.Engine
	viewer *viewer.Viewer

	// emit and quit default to the Wails runtime.
	emit func(event string, data ...interface{})
	quit func()

	// mu guards ctx and source.
	mu     sync.Mutex
	source string
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result returned to the frontend.
type EvalResult struct {
	Nodes   int             `json:"nodes"`
	Volumes int             `json:"volumes"`
	Errors  []EvalErrorData `json:"errors"`
}

// NewApp creates a new App with an engine and a viewer replying to the
// webview.
func NewApp() *App {
	a := &App{engine: engine.NewEngine()}
	a.emit = func(event string, data ...interface{}) {
		if ctx := a.context(); ctx != nil {
			runtime.EventsEmit(ctx, event, data...)
		}
	}
	a.quit = func() {
		if ctx := a.context(); ctx != nil {
			runtime.Quit(ctx)
		}
	}
	a.viewer = viewer.New(a, viewer.WithQuit(func() { a.quit() }))
	return a
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ctx = ctx
}

// context returns the context saved by startup, or nil before startup.
func (a *App) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctx
}

// Send implements viewer.Channel.
func (a *App) Send(connID, text string) error {
	a.emit(EventText, text)
	return nil
}

// SendBinary implements viewer.Channel. Wails events carry JSON, so the
// buffer travels base64 encoded.
func (a *App) SendBinary(connID string, data []byte) error {
	a.emit(EventBinary, base64.StdEncoding.EncodeToString(data))
	return nil
}

// Evaluate takes geometry source, shows the result and pushes the
// hierarchy and main drawing to the frontend. On errors the previous
// geometry stays on screen.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{Errors: []EvalErrorData{}}

	mgr, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	a.mu.Lock()
	a.source = source
	a.mu.Unlock()

	a.viewer.SetGeometry(mgr)
	result.Nodes = a.viewer.Description().NumNodes()
	result.Volumes = mgr.VolumeCount()

	if err := a.viewer.Handle(desktopConn, viewer.ReqConnReady); err != nil {
		log.Printf("send geometry: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
	}
	return result
}

// EvaluateFile reads path and evaluates it.
func (a *App) EvaluateFile(path string) EvalResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{Errors: []EvalErrorData{{Message: err.Error()}}}
	}
	return a.Evaluate(string(data))
}

// Source returns the last source that evaluated without errors.
func (a *App) Source() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// Request forwards a viewer request from the frontend, e.g. "SEARCH:pipe".
// Replies arrive as events.
func (a *App) Request(msg string) error {
	return a.viewer.Handle(desktopConn, msg)
}
