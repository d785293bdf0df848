// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: shared aggregate columns and the migration list
//   - quoting.go: quotes, line items and addons
//   - partner.go: accounts, leads and account-level recurring items
//   - finance.go: invoices and the jurisdiction tax table
//   - catalog.go: the read-only item catalog
//   - activity.go: the audit log
package models
