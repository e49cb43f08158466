// Package tasks synchronizes paid HubSpot invoices into Twinfield with real-time progress reporting.
//
// # Sync Run
//
// [Engine.Run] walks every invoice returned by the CRM:
//
//  1. Invoices whose status is not the configured status (paid) are skipped
//  2. Invoices already present in the ledger are skipped
//  3. The first associated company supplies the Twinfield relation number
//  4. Associated line items become detail lines of the transaction
//  5. The transaction is posted, and recorded in the ledger only when Twinfield accepts it
//
// A failure on one invoice is logged and counted, and the run moves on to the next invoice.
// Dry runs stop after step 4 and report the invoice as would-sync.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, a message and the per-invoice [InvoiceResult] as data.
// Updates use select with default so a slow reader never blocks the run.
//
// # Bookkeeping
//
// Every run is stored as a [models.SyncRun] when a [RunStore] is configured, and traced with one span
// per run and one per invoice.
package tasks
