package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS ESTÁNDAR - NODO
// =================================================================================

// NodeID crea un campo para la identidad del nodo.
func NodeID(v string) zap.Field {
	return zap.String("node", v)
}

// Tick crea un campo para el número de tick.
func Tick(v int) zap.Field {
	return zap.Int("tick", v)
}

// Peer crea un campo para la dirección de un peer.
func Peer(v string) zap.Field {
	return zap.String("peer", v)
}

// Kind crea un campo para el tipo de snapshot o de falla.
func Kind(v string) zap.Field {
	return zap.String("kind", v)
}

// Path crea un campo para una ruta en disco.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Mode crea un campo para el market mode.
func Mode(v string) zap.Field {
	return zap.String("mode", v)
}

// Score crea un campo para el composite.
func Score(v float64) zap.Field {
	return zap.Float64("score", v)
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op crea un campo para la operación actual.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Addr crea un campo para una dirección de escucha.
func Addr(v string) zap.Field {
	return zap.String("addr", v)
}

// Duration crea un campo para una duración.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Err crea un campo para un error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int crea un campo int genérico.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}
