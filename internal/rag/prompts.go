package rag

import (
	"strings"

	"ciq-assistant/internal/router"
)

// NoContextMarker replaces the retrieved document when a collection has nothing to search.
const NoContextMarker = "No relevant context found."

const fallbackPrompt = `Context:
{context}
Query:
{query}
Answer:`

var categoryPrompts = map[router.Category]string{
	router.CategoryCIQ: `You are a telecom assistant. Answer the user's question from the CIQ (Customer Information Questionnaire) sheet data below.

Context:
{context}

User Query:
{query}

Give a structured, helpful answer:`,

	router.CategoryStandardCIQ: `You are a telecom assistant. The CIQ data below has already been normalized to the standard column names and formats. Use it to answer the user's question.

Standardized CIQ Context:
{context}

User Query:
{query}

Answer precisely from the standardized data:`,

	router.CategoryTemplate: `You are a configuration assistant. Use the network element template below, generated from a CIQ, to answer the question.

Template Context:
{context}

Query:
{query}

Response:`,

	router.CategoryMasterTemplate: `You are a deployment assistant. The context below is a global or merged network element master template. Use it to answer the query.

Master Template:
{context}

User Query:
{query}

Answer with high-level clarity:`,

	router.CategoryLog: `You are a diagnostics assistant. The context below is a system or error log. Use it to troubleshoot the issue or answer the question.

Log Context:
{context}

User Query:
{query}

Give an insightful, actionable answer:`,

	router.CategoryGeneral: `You are an assistant. The context below is the conversation so far.

Past Conversation
{context}

User Query:
{query}

Give a short, crisp answer:`,
}

// buildPrompt fills the template for category. Categories without their own
// template use the generic fallback.
func buildPrompt(category router.Category, context, query string) string {
	tmpl, ok := categoryPrompts[category]
	if !ok {
		tmpl = fallbackPrompt
	}
	r := strings.NewReplacer("{context}", context, "{query}", query)
	return r.Replace(tmpl)
}
