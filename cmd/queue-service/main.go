package main

import (
	"context"
	"encoding/json"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"hqms/queue-service/internal/config"
	"hqms/queue-service/internal/httpapi"
	"hqms/queue-service/internal/hub"
	"hqms/queue-service/internal/store"
	"hqms/queue-service/internal/store/postgres"
	"hqms/queue-service/internal/telemetry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type eventEnvelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

func main() {
	cfg := config.Load()
	shutdownTelemetry := telemetry.Setup("queue-service")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	st := postgres.NewStore(pool, postgres.Options{
		DefaultConsultMinutes: cfg.DefaultConsultMinutes,
		DeptLockTimeout:       cfg.DeptLockTimeout,
	})
	handler := httpapi.NewHandler(st)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:         cfg.RateLimitPerMinute,
		IPBurst:             cfg.RateLimitBurst,
		DepartmentPerMinute: cfg.DeptRateLimitPerMinute,
		DepartmentBurst:     cfg.DeptRateLimitBurst,
	})
	h := hub.New()

	mux := http.NewServeMux()
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/display/live/", newDisplaySocket(h))
	mux.Handle("/", httpapi.AuthMiddleware(st, handler.Routes()))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "queue-service"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("queue-service listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Confirmed bookings for a future date become tickets once that date
	// arrives; a sweeper materializes them in the background.
	go func() {
		if cfg.MaterializeInterval <= 0 {
			return
		}
		ticker := time.NewTicker(cfg.MaterializeInterval)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			today := time.Now().UTC().Format(store.DateLayout)
			count, err := st.MaterializeDueBookings(ctx, today)
			cancel()
			if err != nil {
				log.Printf("materialize error: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("materialized %d bookings for %s", count, today)
			}
		}
	}()

	go pumpOutbox(st, h, cfg.DisplayPollInterval, cfg.EventBatchSize)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// pumpOutbox polls the outbox and fans events out to connected displays.
func pumpOutbox(st store.Store, h *hub.Hub, interval time.Duration, batchSize int) {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	after := time.Now().UTC()
	var running int32

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if !atomic.CompareAndSwapInt32(&running, 0, 1) {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		events, err := st.ListOutboxEvents(ctx, after, batchSize)
		cancel()
		if err != nil {
			log.Printf("outbox poll error: %v", err)
			atomic.StoreInt32(&running, 0)
			continue
		}
		for _, event := range events {
			after = event.CreatedAt
			env := eventEnvelope{Type: event.Type, Payload: event.Payload, CreatedAt: event.CreatedAt}
			payload, _ := json.Marshal(env)
			h.Broadcast(payload, hub.Subscription{
				DepartmentID: event.DepartmentID,
				DoctorID:     doctorFromPayload(event.Payload),
			})
		}
		atomic.StoreInt32(&running, 0)
	}
}

func doctorFromPayload(payload []byte) string {
	var data map[string]interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return ""
	}
	if value, ok := data["doctor_id"].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// newDisplaySocket serves waiting-room displays over sockjs. Displays are
// public: they subscribe to a department (optionally one doctor) and get
// pushed every event for that scope.
func newDisplaySocket(h *hub.Hub) http.Handler {
	return sockjs.NewHandler("/display/live", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.UpdateSubscription(client, hub.Subscription{})
				continue
			}
			h.UpdateSubscription(client, hub.Subscription{
				DepartmentID: strings.TrimSpace(parsed.DepartmentID),
				DoctorID:     strings.TrimSpace(parsed.DoctorID),
			})
		}
	})
}
