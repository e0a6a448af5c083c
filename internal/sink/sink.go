// Package sink replica snapshots ya persistidos localmente hacia backends
// externos (Redis para "último valor", Postgres para historial).
//
// Los mirrors son opcionales y nunca reemplazan al archivo local: un error acá
// se loguea y el tick sigue.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
)

// Publisher recibe cada snapshot que se escribió bien en disco.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, node, kind string, record any) error
	Close() error
}

func encode(record any) ([]byte, error) {
	b, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}
