package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Длительность обработки HTTP запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	HTTPRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Количество HTTP запросов",
	}, []string{"method", "route", "status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	SentenceSelections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reflection_sentence_selections_total",
		Help: "Выбранные фразы по режиму выбора",
	}, []string{"mode"})

	BookkeepingFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reflection_bookkeeping_failures_total",
		Help: "Фраза выдана, но не сохранена как последняя",
	})

	EmotionsLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reflection_emotions_logged_total",
		Help: "Отмеченные пользователями эмоции",
	}, []string{"emotion"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reflection_cache_lookups_total",
		Help: "Обращения к кэшу количества фраз",
	}, []string{"result"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		HTTPRequestDuration,
		HTTPRequestTotal,
		NetworkRequestDuration,
		NetworkRequestTotal,
		SentenceSelections,
		BookkeepingFailures,
		EmotionsLogged,
		CacheLookups,
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveHTTPRequest записывает обработанный входящий запрос.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	code := strconv.Itoa(status)
	HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	HTTPRequestTotal.WithLabelValues(method, route, code).Inc()
}

// IncSelection увеличивает счётчик выбранных фраз для режима mode.
func IncSelection(mode string) {
	SentenceSelections.WithLabelValues(mode).Inc()
}

// IncBookkeepingFailure отмечает несохранённую последнюю фразу.
func IncBookkeepingFailure() {
	BookkeepingFailures.Inc()
}

// IncEmotionLogged увеличивает счётчик отмеченной эмоции.
func IncEmotionLogged(emotion string) {
	EmotionsLogged.WithLabelValues(emotion).Inc()
}

// IncCacheLookup отмечает попадание (hit) или промах (miss) кэша.
func IncCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}
