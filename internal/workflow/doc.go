// Package workflow runs named, ordered sequences of tool invocations.
//
// A workflow is a list of [Step] values, each naming a tool and a parameter
// mapping. Parameters may be placeholders of the form "{identifier}" that are
// resolved at run time, first against the caller's [Context] and then against
// the results of earlier steps in the same run.
//
// Key types:
//   - [Registry] holds workflow definitions and is safe for concurrent use
//   - [Runner] executes a workflow step by step through a [ToolExecutor]
//   - [ResultSet] maps each tool name to its latest result within one run
//
// Runs are fail-fast: the first tool failure is returned unchanged and no
// later step executes. There is no retry and no rollback.
package workflow
