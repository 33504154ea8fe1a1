// Package http provides the HTTP surface of the scheduling assistant.
//
// The router exposes the following endpoints:
//   - GET /health: liveness probe reporting the active conversation count.
//   - POST /api/clarify: stateless single-question clarification. Body:
//     {"problem_text","answered_questions":[],"current_events":[]}.
//   - POST /api/next: one turn of the conversation state machine. Responds
//     with either {"status":"clarify","question"} or
//     {"status":"proposal","proposal"}.
//   - POST /api/apply: pushes proposal changes to the calendar provider and
//     reports per-change outcomes.
//   - POST /api/undo: reverses the named applied proposal at most once.
//   - GET /api/conversations/{id}: conversation snapshot for debugging.
//   - DELETE /api/conversations/{id}: discards the conversation state.
//
// All /api routes require a bearer calendar credential, forwarded opaquely to
// the provider. Request/response DTOs live alongside their handlers.
package http
