package p2p

import "fmt"

// DefaultPort es el puerto UDP para identidades fuera de la tabla.
const DefaultPort = 9010

// portTable es el mapeo estático identidad → puerto UDP local.
var portTable = map[string]int{
	"A": 9001,
	"B": 9002,
	"C": 9003,
	"D": 9004,
	"E": 9005,
}

// PortFor resuelve el puerto de una identidad; DefaultPort si no está en la tabla.
func PortFor(nodeID string) int {
	if p, ok := portTable[nodeID]; ok {
		return p
	}
	return DefaultPort
}

// ListenAddrFor devuelve 127.0.0.1:<PortFor(nodeID)>.
func ListenAddrFor(nodeID string) string {
	return fmt.Sprintf("127.0.0.1:%d", PortFor(nodeID))
}

// DefaultPeers es el peer set estático de la malla local (A..E).
func DefaultPeers() []string {
	return []string{
		"127.0.0.1:9001",
		"127.0.0.1:9002",
		"127.0.0.1:9003",
		"127.0.0.1:9004",
		"127.0.0.1:9005",
	}
}
