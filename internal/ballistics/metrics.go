package ballistics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/ballistics/internal/ballistics"

// Metrics counts stepper activity. A nil *Metrics records nothing.
type Metrics struct {
	steps   metric.Int64Counter
	impacts metric.Int64Counter
	exits   metric.Int64Counter
}

// NewMetrics creates the stepper instruments on meter.
// A nil meter uses the global OTel provider (no-op if not configured).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	var (
		m   Metrics
		err error
	)

	m.steps, err = meter.Int64Counter(
		"ballistics.steps",
		metric.WithDescription("Trajectory steps advanced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating steps counter: %w", err)
	}

	m.impacts, err = meter.Int64Counter(
		"ballistics.impacts",
		metric.WithDescription("Blocking surfaces struck, by material"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating impacts counter: %w", err)
	}

	m.exits, err = meter.Int64Counter(
		"ballistics.exit_searches",
		metric.WithDescription("Exit searches, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating exit counter: %w", err)
	}

	return &m, nil
}

func (m *Metrics) step() {
	if m == nil {
		return
	}
	m.steps.Add(context.Background(), 1)
}

func (m *Metrics) impact(material string) {
	if m == nil {
		return
	}
	m.impacts.Add(context.Background(), 1, metric.WithAttributes(attribute.String("material", material)))
}

func (m *Metrics) exit(outcome ExitOutcome) {
	if m == nil {
		return
	}
	m.exits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}
