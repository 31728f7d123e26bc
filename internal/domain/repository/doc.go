// Package repository define las interfaces de acceso a datos y los tipos de
// dominio del boundary de sign-in: workspaces (tenants), cuentas, identity
// links y el estado pendiente de autenticación.
//
// Las implementaciones viven en internal/store/pg. Toda mutación es un solo
// statement con atomicidad a nivel de fila; no hay transacciones de aplicación
// que crucen llamadas de red al proveedor externo.
package repository
