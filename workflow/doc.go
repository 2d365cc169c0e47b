// Package workflow provides a composable asynchronous step engine.
//
// A Step is a named unit of work with an input type, an output type, and an
// error handling mode. Combinators (Then, Map, FlatMap) build new Steps out
// of existing ones, and fan-out entry points (RunStream, RunBatch, RunMany,
// StreamMany) run a Step over many inputs concurrently. Because every
// combinator returns a Step, pipelines of arbitrary depth can be streamed and
// batched exactly like primitive steps.
//
// The error mode decides what the fan-out layer does with a failing item:
// Raise aborts on the first failure, Pass silently drops the item from the
// aggregate result. A bare Run always reports its error; Pass semantics never
// apply to a single invocation.
package workflow
