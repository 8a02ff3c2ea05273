// Package runledger persists run history in SQLite. The workdir state file
// is the unit of resumability; the ledger is the durable cross-run record
// that the history command reads.
package runledger
