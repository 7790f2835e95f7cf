package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceDB wraps sql.DB with tracing
type TraceDB struct {
	db       *sql.DB
	dbSystem string
}

// NewTraceDB creates a traced database wrapper. dbSystem is the
// OpenTelemetry db.system value, e.g. "sqlite" or "postgresql".
func NewTraceDB(db *sql.DB, dbSystem string) *TraceDB {
	return &TraceDB{
		db:       db,
		dbSystem: dbSystem,
	}
}

// ExecContext executes a statement with tracing
func (t *TraceDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, span := StartSpan(ctx, "DB Exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.dbSystem),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := t.db.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		RecordError(span, err)
	} else {
		SetSuccess(span)
		if rowsAffected, raErr := result.RowsAffected(); raErr == nil {
			span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
		}
	}

	span.SetAttributes(attribute.Int64("db.query_duration_ms", duration.Milliseconds()))

	return result, err
}

// QueryRowContext executes a query that returns a single row with tracing
func (t *TraceDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	ctx, span := StartSpan(ctx, "DB QueryRow",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", t.dbSystem),
			attribute.String("db.statement", truncateQuery(query)),
		),
	)
	// Note: span.End() should be called after scanning the row
	// This is a limitation of the sql.Row interface

	row := t.db.QueryRowContext(ctx, query, args...)
	span.End()
	return row
}

func truncateQuery(query string) string {
	if len(query) > 500 {
		return query[:500] + "..."
	}
	return query
}

// ParkingMetrics holds parking-domain metrics
type ParkingMetrics struct {
	captures      metric.Int64Counter
	locationFixes metric.Int64Counter
	storeErrors   metric.Int64Counter
	clears        metric.Int64Counter
	photoBytes    metric.Int64Histogram
}

// NewParkingMetrics creates parking metrics instruments
func NewParkingMetrics() (*ParkingMetrics, error) {
	meter := otel.Meter(instrumentationName)

	captures, err := meter.Int64Counter(
		"parkit.capture.count",
		metric.WithDescription("Total number of capture attempts"),
		metric.WithUnit("{captures}"),
	)
	if err != nil {
		return nil, err
	}

	locationFixes, err := meter.Int64Counter(
		"parkit.location.count",
		metric.WithDescription("Captures by whether a location was obtained"),
		metric.WithUnit("{captures}"),
	)
	if err != nil {
		return nil, err
	}

	storeErrors, err := meter.Int64Counter(
		"parkit.store.errors",
		metric.WithDescription("Record store failures by kind"),
		metric.WithUnit("{errors}"),
	)
	if err != nil {
		return nil, err
	}

	clears, err := meter.Int64Counter(
		"parkit.clear.count",
		metric.WithDescription("Total number of cleared parking records"),
		metric.WithUnit("{clears}"),
	)
	if err != nil {
		return nil, err
	}

	photoBytes, err := meter.Int64Histogram(
		"parkit.photo.size",
		metric.WithDescription("Encoded photo size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &ParkingMetrics{
		captures:      captures,
		locationFixes: locationFixes,
		storeErrors:   storeErrors,
		clears:        clears,
		photoBytes:    photoBytes,
	}, nil
}

// RecordCapture records a capture attempt and its outcome.
// A nil receiver is a no-op so callers can run without telemetry.
func (m *ParkingMetrics) RecordCapture(ctx context.Context, outcome string, photoSize int, locationObtained bool) {
	if m == nil {
		return
	}
	m.captures.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if outcome != "saved" {
		return
	}
	m.locationFixes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("obtained", locationObtained)))
	m.photoBytes.Record(ctx, int64(photoSize))
}

// RecordStoreError records a record store failure
func (m *ParkingMetrics) RecordStoreError(ctx context.Context, operation, code string) {
	if m == nil {
		return
	}
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("code", code),
	))
}

// RecordClear records a cleared parking record
func (m *ParkingMetrics) RecordClear(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.clears.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
