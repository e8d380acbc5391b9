// Package gemini is the adapter between the service and Google's Gemini API.
//
// Client sends a system instruction and a prompt to a Gemini model and
// returns the text of the first candidate. Calls are paced with a token
// bucket limiter and transient failures are retried with exponential backoff
// and jitter. Responses blocked by safety filters or missing content are
// permanent failures and are not retried.
//
// The genai client is hidden behind ContentGenerator so tests can supply a
// scripted fake instead of calling the network.
package gemini
