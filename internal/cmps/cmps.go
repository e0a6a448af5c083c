// Package cmps implementa el Cognitive Multi-Proof System: cinco scores
// estructurales (PoC², PoCog, PoSyn, PoAd, PoInt) plegados en un único escalar.
//
// Todo acá es puro: sin estado, sin I/O.
package cmps

import "math"

// Scores son los cinco scores estructurales del nodo, convencionalmente en [0,1].
// Se fijan al arrancar y no cambian durante la vida del proceso.
type Scores struct {
	Continuity float64 `json:"continuity" yaml:"continuity"`
	Cognition  float64 `json:"cognition" yaml:"cognition"`
	Synergy    float64 `json:"synergy" yaml:"synergy"`
	Adaptation float64 `json:"adaptation" yaml:"adaptation"`
	Integrity  float64 `json:"integrity" yaml:"integrity"`
}

// Weights son los coeficientes w0..w4 que devuelve AIFA, uno por dimensión.
// No se normalizan: el composite es una suma ponderada general.
type Weights struct {
	W0 float64 `json:"w0"`
	W1 float64 `json:"w1"`
	W2 float64 `json:"w2"`
	W3 float64 `json:"w3"`
	W4 float64 `json:"w4"`
}

// DefaultScores son los scores fijos con los que arranca un nodo.
var DefaultScores = Scores{
	Continuity: 0.9,
	Cognition:  0.8,
	Synergy:    0.7,
	Adaptation: 0.6,
	Integrity:  0.85,
}

// StaticWeights se usan sólo para el composite "estático" que se muestra al boot.
var StaticWeights = Weights{W0: 0.25, W1: 0.30, W2: 0.20, W3: 0.15, W4: 0.10}

// Vector devuelve los scores en orden de dimensión.
func (s Scores) Vector() [5]float64 {
	return [5]float64{s.Continuity, s.Cognition, s.Synergy, s.Adaptation, s.Integrity}
}

// Vector devuelve los pesos en orden de dimensión.
func (w Weights) Vector() [5]float64 {
	return [5]float64{w.W0, w.W1, w.W2, w.W3, w.W4}
}

// Composite devuelve Σ s_i·w_i sobre las cinco dimensiones.
func Composite(s Scores, w Weights) float64 {
	return s.Continuity*w.W0 +
		s.Cognition*w.W1 +
		s.Synergy*w.W2 +
		s.Adaptation*w.W3 +
		s.Integrity*w.W4
}

// Valid reporta si un composite es usable (finito).
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
