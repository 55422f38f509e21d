// Package sandbox gates every side-effecting publish behind an explicit
// execution mode: simulation (score and record, never execute),
// validation (record and hold for operator approval), or production
// (execute and audit). Handlers call Gate.Publish instead of any platform
// client, which guarantees no automated path can publish without either a
// deliberate production promotion or a human approval.
//
// The gate owns SimulatedAction records through an ActionStore (memory
// and Redis implementations included); the store is the single source of
// truth and the approval workflow survives restarts with a durable store.
package sandbox
