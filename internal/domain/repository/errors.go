package repository

import "errors"

// Errores comunes de repositorio.
var (
	// ErrNotFound indica que el registro no existe.
	ErrNotFound = errors.New("repository: not found")

	// ErrConflict indica una violación de unicidad (slug, identity link, email).
	ErrConflict = errors.New("repository: conflict")
)
