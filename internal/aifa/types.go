package aifa

import (
	"errors"
	"fmt"
)

// Telemetry describe las condiciones del tick; se arma de nuevo en cada tick.
type Telemetry struct {
	Volatility     float64 `json:"volatility" yaml:"volatility"`
	Congestion     float64 `json:"congestion" yaml:"congestion"`
	UptimeVariance float64 `json:"uptime_variance" yaml:"uptime_variance"`
	TreasuryHealth float64 `json:"treasury_health" yaml:"treasury_health"`
}

// DefaultTelemetry son los valores fijos que usa el nodo si no hay overrides.
var DefaultTelemetry = Telemetry{
	Volatility:     0.23,
	Congestion:     0.18,
	UptimeVariance: 0.03,
	TreasuryHealth: 0.88,
}

// Split es la recomendación de reparto del tesoro para un market mode.
// No se valida que sume 100: se persiste lo que llega.
type Split struct {
	Innovation int `json:"innovation"`
	Governance int `json:"governance"`
}

// ErrUnavailable es la única señal de falla hacia afuera: transporte, status
// no-2xx, body que no parsea o breaker abierto. Usar errors.Is.
var ErrUnavailable = errors.New("aifa unavailable")

// FailureKind clasifica la falla sólo para diagnóstico (logs/métricas).
type FailureKind string

const (
	KindTransport   FailureKind = "transport"
	KindStatus      FailureKind = "status"
	KindParse       FailureKind = "parse"
	KindBreakerOpen FailureKind = "breaker_open"
)

// Error envuelve la causa de una llamada fallida.
type Error struct {
	Call   string // weights | vault_split | health
	Kind   FailureKind
	Status int
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("aifa %s: %s", e.Call, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status=%d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is hace que cualquier *Error matchee ErrUnavailable.
func (e *Error) Is(target error) bool { return target == ErrUnavailable }

// KindOf devuelve el FailureKind de err, o "" si no es un *Error.
func KindOf(err error) FailureKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
