package portal

import (
	"bufio"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/credstore"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/provision"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum size of a credential submission body
	maxBodySize = 1024

	// Response texts shown by the setup page
	msgBadJSON    = "Bad JSON"
	msgConnecting = "Trying to connect..."
	msgRestarting = "Rebooting to apply new network..."
)

//go:embed templates/setup.html
var templateFS embed.FS

var setupTemplate = template.Must(template.ParseFS(templateFS, "templates/setup.html"))

// Provisioner is the part of the state machine the portal talks to.
type Provisioner interface {
	Submit(network, secret string) (provision.Ack, error)
	Snapshot() provision.Snapshot
	Subscribe() (<-chan provision.Snapshot, func())
}

// Config holds the listener settings.
type Config struct {
	Host string
	Port int
}

// Server serves the setup page, the credential endpoint, the JSON status and
// a websocket status feed.
type Server struct {
	config   Config
	prov     Provisioner
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
	wsConns  map[*websocket.Conn]struct{}
	wg       sync.WaitGroup
	closing  bool
}

// New creates a portal server for prov.
func New(config Config, prov Provisioner) *Server {
	return &Server{
		config: config,
		prov:   prov,
		upgrader: websocket.Upgrader{
			// The page is served by the device itself.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsConns: make(map[*websocket.Conn]struct{}),
	}
}

// Handler returns the portal routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleSetupPage)
	mux.HandleFunc("POST /configure", s.handleConfigure)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	return logRequests(mux)
}

// Listen opens the TCP listener. It is called by Serve when needed; calling
// it first lets the caller learn the bound address.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = l
	return l.Addr(), nil
}

// Serve serves until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr, err := s.Listen()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv, l := s.httpSrv, s.listener
	s.mu.Unlock()

	logging.Info("Setup portal listening", zap.String("addr", addr.String()))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(l)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("setup portal stopped: %w", err)
	}
}

// Shutdown stops accepting requests, closes websocket feeds and waits for
// handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down setup portal...")

	s.mu.Lock()
	s.closing = true
	srv := s.httpSrv
	for conn := range s.wsConns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, websocket feeds still open")
	}
	return err
}

// ActiveFeeds returns the number of open websocket feeds.
func (s *Server) ActiveFeeds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.wsConns)
}

type setupPageData struct {
	Snapshot  provision.Snapshot
	StateText string
	MaxLen    int
}

func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	snap := s.prov.Snapshot()
	data := setupPageData{
		Snapshot:  snap,
		StateText: describeState(snap),
		MaxLen:    credstore.FieldSize,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := setupTemplate.Execute(w, data); err != nil {
		logging.Error("Failed to render setup page", zap.Error(err))
	}
}

// describeState is the one-line status shown above the form.
func describeState(snap provision.Snapshot) string {
	switch snap.State {
	case provision.ConnectingStation:
		return fmt.Sprintf("Connecting to %s (%d/%d)...", snap.Network, snap.Polls, snap.MaxPolls)
	case provision.StationConnected:
		return fmt.Sprintf("Connected to %s.", snap.Network)
	case provision.StationFailed:
		return fmt.Sprintf("Could not connect to %s. Enter the network details again.", snap.Network)
	default:
		if snap.HasCredentials {
			return fmt.Sprintf("Saved network: %s.", snap.Network)
		}
		return "Enter the network this device should join."
	}
}

type configureRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	req, err := decodeConfigure(r)
	if err != nil {
		logging.Debug("Malformed credential submission", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		writeText(w, http.StatusBadRequest, msgBadJSON)
		return
	}

	ack, err := s.prov.Submit(req.SSID, req.Password)
	if err != nil {
		var cfgErr *provision.ConfigError
		if errors.As(err, &cfgErr) {
			writeText(w, http.StatusUnprocessableEntity, cfgErr.Error())
			return
		}
		if errors.Is(err, provision.ErrRestartPending) {
			writeText(w, http.StatusServiceUnavailable, msgRestarting)
			return
		}
		logging.Error("Credential submission failed", zap.Error(err))
		writeText(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if ack.Restart {
		writeText(w, http.StatusAccepted, msgRestarting)
		return
	}
	writeText(w, http.StatusAccepted, msgConnecting)
}

// decodeConfigure reads a JSON body, or a form post from browsers without
// scripting.
func decodeConfigure(r *http.Request) (configureRequest, error) {
	var req configureRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.SSID = r.PostForm.Get("ssid")
		req.Password = r.PostForm.Get("password")
		return req, nil
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		return req, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return req, errors.New("trailing data after JSON object")
	}
	return req, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.prov.Snapshot()); err != nil {
		logging.Warn("Failed to write status", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Feeds are counted before the upgrade so Shutdown never waits on a
	// group that is still growing.
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		writeText(w, http.StatusServiceUnavailable, "Shutting down")
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wg.Done()
		logging.Warn("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
		return
	}
	s.wsConns[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.wsConns, conn)
		s.mu.Unlock()
		_ = conn.Close()
		s.wg.Done()
		logging.LogConnection(r.RemoteAddr, "status_feed_closed")
	}()

	logging.LogConnection(r.RemoteAddr, "status_feed_opened")
	s.streamStatus(conn)
}

// streamStatus writes every snapshot to conn until the peer goes away.
func (s *Server) streamStatus(conn *websocket.Conn) {
	updates, unsubscribe := s.prov.Subscribe()
	defer unsubscribe()

	// The read side only handles control frames and notices the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, msg)
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes through to the underlying writer for the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPResponse(r.RemoteAddr, r.URL.Path, rec.status)
	})
}
