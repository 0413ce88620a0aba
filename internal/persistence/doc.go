// Package persistence stores analysis snapshots and the bond catalogue.
//
// Snapshots go through the Repository interface, backed either by JSON
// files (FileRepository) or by a gorm database (DatabaseRepository).
// Registered bonds and the yield curve always live in the database through
// BondStore.
package persistence
