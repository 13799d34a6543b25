package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	ChatTurnsTotal           metric.Int64Counter
	ChatTurnDurationSeconds  metric.Float64Histogram
	ChatTurnErrorsTotal      metric.Int64Counter
	RepeatFallbacksTotal     metric.Int64Counter
	RetrievalQueriesTotal    metric.Int64Counter
	RetrievalDurationSeconds metric.Float64Histogram
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() { // Ensure this only runs once
		meter := otel.GetMeterProvider().Meter("ggdotcom")
		var err error
		m := &AppMetrics{}

		m.ChatTurnsTotal, err = meter.Int64Counter(
			"chat_turns_total",
			metric.WithDescription("Total number of chat turns completed"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turns_total: %v", err)
		}

		m.ChatTurnDurationSeconds, err = meter.Float64Histogram(
			"chat_turn_duration_seconds",
			metric.WithDescription("Duration of chat turns in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turn_duration_seconds: %v", err)
		}

		m.ChatTurnErrorsTotal, err = meter.Int64Counter(
			"chat_turn_errors_total",
			metric.WithDescription("Total number of chat turns that failed"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create chat_turn_errors_total: %v", err)
		}

		m.RepeatFallbacksTotal, err = meter.Int64Counter(
			"repeat_fallbacks_total",
			metric.WithDescription("Total number of turns that repeated an already visited area"),
			metric.WithUnit("{turn}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create repeat_fallbacks_total: %v", err)
		}

		m.RetrievalQueriesTotal, err = meter.Int64Counter(
			"retrieval_queries_total",
			metric.WithDescription("Total number of per-term collection queries issued"),
			metric.WithUnit("{query}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create retrieval_queries_total: %v", err)
		}

		m.RetrievalDurationSeconds, err = meter.Float64Histogram(
			"retrieval_duration_seconds",
			metric.WithDescription("Duration of full context retrieval in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create retrieval_duration_seconds: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m // Assign to global variable
	})
}

// Get returns the globally initialized AppMetrics instance, initializing
// against the global MeterProvider on first use.
func Get() *AppMetrics {
	if appMetrics == nil {
		InitAppMetrics()
	}
	return appMetrics
}
