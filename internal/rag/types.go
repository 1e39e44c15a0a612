package rag

import "ciq-assistant/internal/router"

// AnswerRequest is one query within a conversation.
type AnswerRequest struct {
	// SessionID scopes conversation memory. Empty means the default session.
	SessionID string `json:"session_id,omitempty"`
	// Query is the user's question.
	Query string `json:"query"`
}

// AnswerResponse is the generated answer and where its context came from.
type AnswerResponse struct {
	// Answer is the model's free-text reply.
	Answer string `json:"response"`
	// Category is the route the classifier picked.
	Category router.Category `json:"category"`
	// Source is the path of the document used as context. Empty for general
	// queries and empty collections.
	Source string `json:"source,omitempty"`
}
