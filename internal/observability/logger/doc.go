// Package logger provee el logger Zap singleton del nodo.
//
// Inicialización (una vez en main):
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, NodeID: cfg.Node.ID})
//	defer logger.Sync()
//
// Los componentes reciben un *zap.Logger ya "scoped":
//
//	hb := p2p.New(p2p.Options{..., Log: logger.Named("p2p")})
//
// Para casos sin logger inyectado, L() devuelve el singleton (dev/info si no hubo Init).
package logger
