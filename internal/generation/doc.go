// Package generation defines the boundary between the application core and
// external language-model providers: the ChatModel interface a provider
// backend implements, the normalizer that turns raw model output into
// validated flashcard proposals, and the closed error taxonomy
// (ValidationError, AiApiError, PersistenceError) that every failure in the
// pipeline maps onto.
package generation
