// Package aifa es el cliente del servicio externo de pesos adaptativos (AIFA).
//
// Dos llamadas síncronas por tick: POST /weights y GET /vault_split. No hay
// reintentos; una falla se reporta una vez y el orquestador decide.
package aifa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/metrics"
	"github.com/sony/gobreaker"
)

const (
	callWeights    = "weights"
	callVaultSplit = "vault_split"
	callHealth     = "health"

	maxBody = 1 << 20
)

// Options configura el cliente.
type Options struct {
	BaseURL string
	Timeout time.Duration // por request; default 10s

	// BreakerFailures > 0 habilita el circuit breaker: tras N fallas seguidas las
	// llamadas fallan sin salir a la red hasta que pase BreakerCooldown.
	BreakerFailures int
	BreakerCooldown time.Duration

	HTTPClient *http.Client // opcional (tests)
}

// Client habla con AIFA.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
}

// New crea un cliente. BaseURL vacío queda como está y cada llamada falla con
// KindTransport.
func New(opts Options) *Client {
	c := &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if opts.BreakerFailures > 0 {
		cooldown := opts.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 30 * time.Second
		}
		threshold := uint32(opts.BreakerFailures)
		c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "aifa",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		})
	}
	return c
}

type weightsWire struct {
	W0 *float64 `json:"w0"`
	W1 *float64 `json:"w1"`
	W2 *float64 `json:"w2"`
	W3 *float64 `json:"w3"`
	W4 *float64 `json:"w4"`
}

type splitWire struct {
	Innovation *int `json:"innovation"`
	Governance *int `json:"governance"`
}

// RequestWeights envía la telemetría y devuelve los cinco pesos.
func (c *Client) RequestWeights(ctx context.Context, t Telemetry) (cmps.Weights, error) {
	var w weightsWire
	err := c.call(ctx, callWeights, http.MethodPost, "/weights", nil, t, &w, func() error {
		if w.W0 == nil || w.W1 == nil || w.W2 == nil || w.W3 == nil || w.W4 == nil {
			return errors.New("missing w0..w4")
		}
		return nil
	})
	if err != nil {
		return cmps.Weights{}, err
	}
	return cmps.Weights{W0: *w.W0, W1: *w.W1, W2: *w.W2, W3: *w.W3, W4: *w.W4}, nil
}

// RequestTreasurySplit pide el reparto para el market mode dado.
func (c *Client) RequestTreasurySplit(ctx context.Context, mode string) (Split, error) {
	var s splitWire
	q := url.Values{"mode": []string{mode}}
	err := c.call(ctx, callVaultSplit, http.MethodGet, "/vault_split", q, nil, &s, func() error {
		if s.Innovation == nil || s.Governance == nil {
			return errors.New("missing innovation/governance")
		}
		return nil
	})
	if err != nil {
		return Split{}, err
	}
	return Split{Innovation: *s.Innovation, Governance: *s.Governance}, nil
}

// Health hace GET /health. Sólo lo usa el CLI.
func (c *Client) Health(ctx context.Context) error {
	var out map[string]any
	return c.call(ctx, callHealth, http.MethodGet, "/health", nil, nil, &out, nil)
}

// call ejecuta el request (a través del breaker si está habilitado), decodifica
// el body en out y corre check sobre lo decodificado. Toda falla sale como
// *Error y, con breaker, cuenta para abrirlo.
func (c *Client) call(ctx context.Context, call, method, path string, q url.Values, in, out any, check func() error) error {
	start := time.Now()
	defer func() {
		metrics.AIFALatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}()

	exec := func() error {
		if err := c.do(ctx, call, method, path, q, in, out); err != nil {
			return err
		}
		if check != nil {
			if err := check(); err != nil {
				return &Error{Call: call, Kind: KindParse, Err: err}
			}
		}
		return nil
	}

	if c.cb == nil {
		return c.fail(call, exec())
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, exec()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &Error{Call: call, Kind: KindBreakerOpen, Err: err}
	}
	return c.fail(call, err)
}

func (c *Client) fail(call string, err error) error {
	if err != nil {
		metrics.AIFAFailures.WithLabelValues(call).Inc()
	}
	return err
}

func (c *Client) do(ctx context.Context, call, method, path string, q url.Values, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Call: call, Kind: KindTransport, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return &Error{Call: call, Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Call: call, Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return &Error{Call: call, Kind: KindStatus, Status: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return &Error{Call: call, Kind: KindParse, Status: resp.StatusCode, Err: err}
	}
	return nil
}
