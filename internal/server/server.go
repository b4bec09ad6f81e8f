package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/database"
	"github.com/vincentbai/keytrace/internal/metrics"
	"github.com/vincentbai/keytrace/internal/models"
	"github.com/vincentbai/keytrace/internal/viz"
)

const maxReportBytes = 8 << 20

// Display is the UI side the server feeds and reads from.
type Display interface {
	Publish(session models.Session) bool
	Snapshot(ctx context.Context) (canvas.Frame, canvas.Axis, error)
	Status(ctx context.Context) (viz.Status, error)
	Reset(ctx context.Context) error
}

type Server struct {
	store   database.SlotStore // nil when persistence is off
	display Display
	// slotsMu keeps stored slots and the display rotating in the same order.
	slotsMu sync.Mutex
	address string
	server  *http.Server
	now     func() time.Time
}

func NewServer(store database.SlotStore, display Display, address string) *Server {
	return &Server{
		store:   store,
		display: display,
		address: address,
		now:     time.Now,
	}
}

type reportRequest struct {
	BehavioData *string `json:"behaviodata"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Write([]byte("ok"))
}

func (s *Server) handleReport(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	var body reportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, request.Body, maxReportBytes)).Decode(&body); err != nil {
		metrics.ReportsRejected.WithLabelValues(metrics.ReasonInvalidJSON).Inc()
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}
	if body.BehavioData == nil {
		metrics.ReportsRejected.WithLabelValues(metrics.ReasonMissingField).Inc()
		http.Error(w, "Missing 'behaviodata' field.", http.StatusBadRequest)
		return
	}

	session, report, err := models.ParseBehavioData(*body.BehavioData)
	if err != nil {
		log.Printf("Rejected report: %v", err)
		metrics.ReportsRejected.WithLabelValues(metrics.ReasonInvalidJSON).Inc()
		http.Error(w, "Error parsing behaviodata JSON string.", http.StatusBadRequest)
		return
	}
	metrics.FieldsParsed.Add(float64(report.Fields))
	metrics.EventsParsed.Add(float64(session.EventCount()))
	metrics.ItemsDropped.WithLabelValues(metrics.ReasonMalformedField).Add(float64(report.SkippedItems))
	metrics.ItemsDropped.WithLabelValues(metrics.ReasonMalformedEvent).Add(float64(report.DroppedEvents))

	if err := session.Validate(); err != nil {
		log.Printf("Report with %d of %d items usable, nothing to show: %v", report.Fields, report.Items, err)
		s.acknowledge(w, report.Fields)
		return
	}

	session.ID = uuid.NewString()
	if err := s.rotate(session, *body.BehavioData); err != nil {
		http.Error(w, err.Error(), err.status)
		return
	}
	metrics.SessionsReceived.Inc()
	log.Printf("Session %s: %s fields, %s events, %s (%d items skipped, %d events dropped)",
		session.ID,
		humanize.Comma(int64(len(session.Fields))),
		humanize.Comma(int64(session.EventCount())),
		humanize.Bytes(uint64(len(*body.BehavioData))),
		report.SkippedItems, report.DroppedEvents)

	w.Header().Set("X-Session-Id", session.ID)
	s.acknowledge(w, report.Fields)
}

type rotateError struct {
	status int
	msg    string
}

func (e *rotateError) Error() string { return e.msg }

// rotate stores session as the current slot and queues it for display while
// holding slotsMu, so concurrent reports land in both in the same order.
func (s *Server) rotate(session models.Session, payload string) *rotateError {
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()

	if s.store != nil {
		record := database.SlotRecord{
			SessionID:  session.ID,
			ReceivedAt: s.now().UnixMilli(),
			FieldCount: len(session.Fields),
			EventCount: session.EventCount(),
			Payload:    payload,
		}
		if err := s.store.Rotate(record); err != nil {
			log.Printf("Database error: %v", err)
			return &rotateError{status: http.StatusInternalServerError, msg: "Failed to store session"}
		}
	}
	if !s.display.Publish(session) {
		return &rotateError{status: http.StatusServiceUnavailable, msg: "Visualizer is not running"}
	}
	return nil
}

func (s *Server) acknowledge(w http.ResponseWriter, fields int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Report received. Keystroke data fields processed: %d", fields)
}

func (s *Server) handleFrame(write func(io.Writer, canvas.Frame, *canvas.Axis) error, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet {
			http.Error(w, "GET only", http.StatusMethodNotAllowed)
			return
		}
		frame, axis, err := s.display.Snapshot(request.Context())
		if err != nil {
			http.Error(w, "Visualizer is not running", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		if err := write(w, frame, &axis); err != nil {
			log.Printf("Failed to write frame: %v", err)
		}
	}
}

type slotSummary struct {
	SessionID  string `json:"sessionId"`
	ReceivedAt int64  `json:"receivedAt"`
	Age        string `json:"age"`
	Fields     int    `json:"fields"`
	Events     int    `json:"events"`
	Size       string `json:"size"`
}

type statusResponse struct {
	viz.Status
	Stored         bool         `json:"stored"`
	StoredCurrent  *slotSummary `json:"storedCurrent,omitempty"`
	StoredPrevious *slotSummary `json:"storedPrevious,omitempty"`
}

func (s *Server) summarize(record *database.SlotRecord) *slotSummary {
	if record == nil {
		return nil
	}
	return &slotSummary{
		SessionID:  record.SessionID,
		ReceivedAt: record.ReceivedAt,
		Age:        humanize.RelTime(time.UnixMilli(record.ReceivedAt), s.now(), "ago", "from now"),
		Fields:     record.FieldCount,
		Events:     record.EventCount,
		Size:       humanize.Bytes(uint64(len(record.Payload))),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	status, err := s.display.Status(request.Context())
	if err != nil {
		http.Error(w, "Visualizer is not running", http.StatusServiceUnavailable)
		return
	}
	response := statusResponse{Status: status, Stored: s.store != nil}
	if s.store != nil {
		current, previous, err := s.store.Slots()
		if err != nil {
			log.Printf("Database error: %v", err)
			http.Error(w, "Failed to read stored sessions", http.StatusInternalServerError)
			return
		}
		response.StoredCurrent = s.summarize(current)
		response.StoredPrevious = s.summarize(previous)
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleReset(w http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()
	if s.store != nil {
		if err := s.store.Clear(); err != nil {
			log.Printf("Database error: %v", err)
			http.Error(w, "Failed to clear stored sessions", http.StatusInternalServerError)
			return
		}
	}
	if err := s.display.Reset(request.Context()); err != nil {
		http.Error(w, "Visualizer is not running", http.StatusServiceUnavailable)
		return
	}
	log.Println("Visualizer reset")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/GetReport", s.handleReport)
	mux.HandleFunc("/api/frame.svg", s.handleFrame(canvas.WriteSVG, "image/svg+xml"))
	mux.HandleFunc("/api/frame.png", s.handleFrame(canvas.WritePNG, "image/png"))
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	mux := s.setupRoutes()
	s.server = &http.Server{
		Addr:         s.address,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	shutdownChannel := make(chan os.Signal, 1)
	signal.Notify(shutdownChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownChannel)

	serveErrors := make(chan error, 1)
	go func() {
		log.Printf("KeyTrace visualizer listening on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrors <- err
		}
	}()

	select {
	case <-shutdownChannel:
	case err := <-serveErrors:
		return fmt.Errorf("server failed to start: %w", err)
	}
	log.Println("Shutting down server...")

	shutdownContext, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}
