// Package job defines the stateful data model shared by every PDOFlow
// subsystem: Posting, JobRecord, and the normalized profiling rows
// (JobProfile, Function, FunctionStat, FunctionCallMap).
//
// Types in this package are plain value holders. They carry no
// persistence or dispatch logic of their own; a Posting or JobRecord
// returned by a Dispatcher or Observer is a snapshot of database state,
// and mutating it does not change storage. Transitions happen only
// through the pdoflow.Dispatcher and pdoflow.Submitter interfaces,
// implemented against a concrete backend by the sql package, and
// through that package's administrative SetPostingStatus.
package job
