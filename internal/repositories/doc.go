// Package repositories implements SQLite persistence for the sync ledger and run history.
//
// Key Implementations:
//   - [LedgerRepository] : Invoices Twinfield accepted, keyed by HubSpot invoice ID. A present row means the
//     invoice is never posted again; deleting it ("forget") allows a resync.
//   - [RunRepository] : One row per sync execution with counters and outcome.
//
// Both implement models.Repository[T]. Missing rows surface as [shared.ErrNotFound] and primary key conflicts
// as [shared.ErrAlreadyExists].
package repositories
