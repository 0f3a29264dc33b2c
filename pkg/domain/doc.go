/*
Package domain contains the core domain models of the curator recommendation engine.

It defines the record threaded through the state machine, the stages that make up a run,
and the records exchanged with external collaborators. This package is kept pure and free
of external dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - State: the write-once record of one run (inputs, history, inventory, candidates, result).
  - StageID / Field: the state machine positions and the State slots stages read and write.
  - UserPurchase / StoreInventory: records served by a Catalog.
  - Recommendation / RunRecord: the output of a run and its persisted form.
  - LifecycleHooks: callbacks for runs, stages and tool calls.
*/
package domain
