package p2p

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var lineEscaper = strings.NewReplacer(`\`, `\\`, "\r", `\r`, "\n", `\n`)

// InboxLog es el log append-only de datagramas recibidos: una línea
// "[<src>] <payload>" por datagrama, nunca se reescribe ni se compacta.
type InboxLog struct {
	path string
}

func NewInboxLog(path string) *InboxLog {
	return &InboxLog{path: path}
}

func (l *InboxLog) Path() string { return l.path }

// Append abre el log en modo append (creándolo si falta), escribe una línea y
// cierra. Los saltos de línea del payload se escapan: un datagrama, una línea.
func (l *InboxLog) Append(src, payload string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir inbox dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open inbox: %w", err)
	}
	msg := lineEscaper.Replace(strings.ToValidUTF8(payload, "�"))
	if _, err := fmt.Fprintf(f, "[%s] %s\n", src, msg); err != nil {
		_ = f.Close()
		return fmt.Errorf("append inbox: %w", err)
	}
	return f.Close()
}
