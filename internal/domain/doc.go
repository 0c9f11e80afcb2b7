// Package domain defines the core business entities of the flashcard
// generation pipeline: generation requests, persisted generation records,
// ephemeral flashcard proposals, and generation error log entries.
//
// Entities are created through validating constructors and are treated as
// append-only once persisted: the pipeline never mutates a Generation or a
// GenerationErrorLog after it has been written.
package domain
