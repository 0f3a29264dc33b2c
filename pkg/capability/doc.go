// Package capability provides ports.Capability implementations: a local Ollama model,
// any OpenAI-compatible chat endpoint, and static responders for tests and offline runs.
//
// Every failure returned by these adapters wraps domain.ErrCapabilityUnavailable so the
// runtime can treat them uniformly as a degradable condition.
package capability
