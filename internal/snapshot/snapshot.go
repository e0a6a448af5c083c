// Package snapshot persiste el último resultado de cada tipo para un nodo.
//
// Un archivo por tipo bajo el state dir del nodo; cada escritura exitosa
// reemplaza el contenido completo. Escritura atómica (tmp + rename): si falla,
// el snapshot anterior queda byte a byte igual.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/aifa"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/cmps"
	"github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/internal/util/atomicwrite"
)

// Nombres de archivo fijos por tipo.
const (
	ScoringFile = "aifa_latest.json"
	SplitFile   = "ctp_latest.json"
	InboxFile   = "p2p_inbox.log"
)

// Kinds, usados en logs, métricas y sinks.
const (
	KindScoring = "scoring"
	KindSplit   = "split"
)

// ErrNotFound se devuelve al leer un snapshot que todavía no existe.
var ErrNotFound = errors.New("snapshot not found")

// Scoring es el snapshot combinado de un tick con pesos.
type Scoring struct {
	TS        string         `json:"ts"`
	Node      string         `json:"node"`
	BootID    string         `json:"boot_id,omitempty"`
	Telemetry aifa.Telemetry `json:"telemetry"`
	Weights   cmps.Weights   `json:"weights"`
	Score     float64        `json:"score"`
}

// Split es el snapshot del reparto del tesoro.
type Split struct {
	TS     string     `json:"ts"`
	Node   string     `json:"node"`
	BootID string     `json:"boot_id,omitempty"`
	Mode   string     `json:"mode"`
	Split  aifa.Split `json:"split"`
}

// Save serializa value como JSON indentado y lo escribe en path, creando los
// directorios que falten. Reemplaza cualquier contenido previo.
func Save(value any, path string) error {
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	b = append(b, '\n')
	if err := atomicwrite.AtomicWriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// Load lee path en out. Devuelve ErrNotFound si el archivo no existe.
func Load(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return nil
}

// Store ubica los snapshots de un nodo bajo su state dir.
// Asume un único writer por archivo.
type Store struct {
	dir string
}

// NodeDir devuelve <root>/<nodeID>.
func NodeDir(root, nodeID string) string {
	return filepath.Join(root, nodeID)
}

// NewStore crea un store sobre dir (normalmente NodeDir(root, id)).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir devuelve el state dir del nodo.
func (s *Store) Dir() string { return s.dir }

func (s *Store) ScoringPath() string { return filepath.Join(s.dir, ScoringFile) }
func (s *Store) SplitPath() string   { return filepath.Join(s.dir, SplitFile) }
func (s *Store) InboxPath() string   { return filepath.Join(s.dir, InboxFile) }

func (s *Store) SaveScoring(rec Scoring) error { return Save(rec, s.ScoringPath()) }
func (s *Store) SaveSplit(rec Split) error     { return Save(rec, s.SplitPath()) }

func (s *Store) LoadScoring() (Scoring, error) {
	var rec Scoring
	err := Load(s.ScoringPath(), &rec)
	return rec, err
}

func (s *Store) LoadSplit() (Split, error) {
	var rec Split
	err := Load(s.SplitPath(), &rec)
	return rec, err
}
