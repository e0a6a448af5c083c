// Package p2p implementa el heartbeat de liveness entre nodos sobre UDP.
//
// Best effort puro: sin orden, sin entrega garantizada, sin autenticación.
// Corre en su propia goroutine durante toda la vida del proceso y comparte con
// el orquestador sólo la identidad del nodo y el state dir.
package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/metrics"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/observability/logger"
	"go.uber.org/zap"
)

const (
	// DefaultInterval entre ciclos.
	DefaultInterval = time.Second

	// ioWindow acota cada send/recv: si el socket no está listo se sigue de largo.
	ioWindow = time.Millisecond

	// maxDatagram cubre el payload UDP máximo: el inbox guarda el datagrama completo.
	maxDatagram = 64 * 1024
)

var (
	// ErrBind: el socket no pudo bindear. Es fatal para el nodo.
	ErrBind = errors.New("p2p bind failed")

	ErrNotBound = errors.New("p2p heartbeat not bound")
)

// Options configura un Heartbeat.
type Options struct {
	NodeID     string
	ListenAddr string // vacío ⇒ ListenAddrFor(NodeID)
	Peers      []string
	Interval   time.Duration
	InboxPath  string
	BootID     string
	Log        *zap.Logger
}

// Heartbeat es la máquina de estados Bind → (Broadcast, Receive, Sleep)*.
type Heartbeat struct {
	listen   string
	peers    []string
	interval time.Duration
	inbox    *InboxLog
	msg      []byte
	log      *zap.Logger

	conn *net.UDPConn
	self *net.UDPAddr
	buf  []byte
}

type pingMsg struct {
	Node string `json:"node"`
	Ping bool   `json:"ping"`
	Boot string `json:"boot,omitempty"`
}

// New arma el heartbeat; no toca la red hasta Bind.
func New(opts Options) *Heartbeat {
	h := &Heartbeat{
		listen:   opts.ListenAddr,
		peers:    append([]string(nil), opts.Peers...),
		interval: opts.Interval,
		inbox:    NewInboxLog(opts.InboxPath),
		log:      opts.Log,
		buf:      make([]byte, maxDatagram),
	}
	if h.listen == "" {
		h.listen = ListenAddrFor(opts.NodeID)
	}
	if h.interval <= 0 {
		h.interval = DefaultInterval
	}
	if h.log == nil {
		h.log = logger.Named("p2p")
	}
	h.msg, _ = json.Marshal(pingMsg{Node: opts.NodeID, Ping: true, Boot: opts.BootID})
	return h
}

// Bind abre el socket UDP. Un error acá envuelve ErrBind.
func (h *Heartbeat) Bind() error {
	laddr, err := net.ResolveUDPAddr("udp", h.listen)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", ErrBind, h.listen, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %v", ErrBind, h.listen, err)
	}
	h.conn = conn
	h.self = conn.LocalAddr().(*net.UDPAddr)
	h.log.Info("p2p listener bound", logger.Addr(h.Addr()))
	return nil
}

// Addr devuelve la dirección efectivamente bindeada ("" antes de Bind).
func (h *Heartbeat) Addr() string {
	if h.self == nil {
		return ""
	}
	return h.self.String()
}

// Close libera el socket.
func (h *Heartbeat) Close() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Close()
}

// Run ejecuta ciclos hasta que ctx se cancele. ctx se chequea al inicio de cada
// ciclo y durante el sleep.
func (h *Heartbeat) Run(ctx context.Context) error {
	if h.conn == nil {
		return ErrNotBound
	}
	timer := time.NewTimer(h.interval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}
		h.Cycle()

		timer.Reset(h.interval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// Cycle es un ciclo sin el sleep: broadcast y a lo sumo un receive.
func (h *Heartbeat) Cycle() {
	h.Broadcast()
	h.ReceiveOne()
}

// Broadcast manda un heartbeat a cada peer salvo a sí mismo. Los errores por
// peer se cuentan y se ignoran. Devuelve cuántos envíos salieron.
func (h *Heartbeat) Broadcast() int {
	if h.conn == nil {
		return 0
	}
	sent := 0
	for _, peer := range h.peers {
		if peer == h.listen || peer == h.Addr() {
			continue
		}
		raddr, err := net.ResolveUDPAddr("udp", peer)
		if err != nil {
			metrics.HeartbeatSendErrors.Inc()
			h.log.Debug("peer unresolvable", logger.Peer(peer), logger.Err(err))
			continue
		}
		if h.isSelf(raddr) {
			continue
		}
		_ = h.conn.SetWriteDeadline(time.Now().Add(ioWindow))
		if _, err := h.conn.WriteToUDP(h.msg, raddr); err != nil {
			metrics.HeartbeatSendErrors.Inc()
			h.log.Debug("heartbeat send failed", logger.Peer(peer), logger.Err(err))
			continue
		}
		metrics.HeartbeatsSent.Inc()
		sent++
	}
	return sent
}

// ReceiveOne intenta leer un datagrama sin esperar y, si hay, lo anota en el
// inbox. Devuelve true si anotó una línea.
func (h *Heartbeat) ReceiveOne() bool {
	if h.conn == nil {
		return false
	}
	_ = h.conn.SetReadDeadline(time.Now().Add(ioWindow))
	n, src, err := h.conn.ReadFromUDP(h.buf)
	if err != nil {
		// timeout = no había nada; cualquier otro error se ignora igual
		return false
	}
	if err := h.inbox.Append(src.String(), string(h.buf[:n])); err != nil {
		h.log.Warn("inbox append failed", logger.Path(h.inbox.Path()), logger.Err(err))
		return false
	}
	metrics.InboxMessages.Inc()
	return true
}

func (h *Heartbeat) isSelf(addr *net.UDPAddr) bool {
	if h.self == nil || addr.Port != h.self.Port {
		return false
	}
	if addr.IP.Equal(h.self.IP) {
		return true
	}
	// bind en 0.0.0.0/:: escucha también en loopback
	return h.self.IP.IsUnspecified() && addr.IP.IsLoopback()
}
