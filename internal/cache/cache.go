// Package cache provee una abstracción byte-oriented con backends memory
// (desarrollo/tests) y redis (producción). Las sesiones viven acá.
package cache

import "time"

// Cache define las operaciones mínimas que necesita el session store.
type Cache interface {
	// Get retorna el valor y true si la key existe y no expiró.
	Get(key string) ([]byte, bool)

	// Set guarda el valor con TTL.
	Set(key string, value []byte, ttl time.Duration)

	// Delete elimina la key. Idempotente.
	Delete(key string) error
}
