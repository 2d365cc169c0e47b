// Package descant runs tool-calling conversations against generative models
// and composes them into concurrent pipelines.
//
// A Flow describes one conversation: its opening messages or template, the
// tools the model may call, an optional structured-output contract, and the
// generator that produces completions. Run drives the conversation round by
// round until the model answers without requesting tools or the round budget
// runs out; every intermediate state is an immutable chat snapshot.
//
// Flows adapt to workflow Steps, so a single Flow definition fans out over
// many inputs (RunBatch, StreamBatch) or repeats over one input (RunMany,
// StreamMany) while sharing a rate limiter with every other branch.
package descant
