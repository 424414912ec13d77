// Package board holds the Kanban state container: boards, their columns and
// the tasks inside them.
//
// A Store is created with New and passed by reference. All mutation goes
// through its named transition methods (or Dispatch, which validates a typed
// Action first). Transitions are synchronous and total: a reference to an id
// that does not exist is a no-op, and a transition that would break a
// standing invariant (deleting the last board, deleting a column that still
// holds tasks) is refused. Neither case is an error; the boolean result tells
// the caller whether state changed.
//
// Invariants held before and after every transition:
//   - at least one board exists and CurrentBoardID names one of them
//   - every task sits in exactly one column of exactly one board
//   - every task's Status equals the Name of the column holding it
//   - column names are unique within a board
//
// After each transition that changed state the Store hands the state to its
// Persister. Save failures are logged and otherwise ignored; the session
// keeps working in memory.
//
// Derived views are served by View, which memoizes every pipeline stage on
// the identity of its inputs.
package board
