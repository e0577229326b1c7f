// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (wire/state) and contracts (interfaces) only.
//
// The directory, message store and local key store are reached only through
// the interfaces here, so services can be wired to in-memory, file-backed or
// remote implementations.
package domain
