// Package models defines domain entities and persistence interfaces for the HubSpot → Twinfield invoice sync.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external service data
//   - [Invoice] : HubSpot invoice with status, amounts and dates
//   - [Company] : HubSpot company carrying the Twinfield relation number
//   - [LineItem] : HubSpot line item with ledger account and cost centre
//   - [Transaction] : Twinfield sales transaction built from the three above
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [LedgerEntry] : An invoice that has been accepted by Twinfield
//   - [SyncRun] : One execution of the sync with its counters and outcome
//
// Persistent entities implement the Model interface providing IDs, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
