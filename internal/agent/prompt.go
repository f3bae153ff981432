package agent

import "github.com/hyperjump/shirabe/internal/models"

// BaseSystemPrompt frames every chat run.
const BaseSystemPrompt = "You are shirabe, a local-first research assistant.\n" +
	"Always prioritize factual accuracy, cite sources when available, and\n" +
	"never fabricate URLs or references. Respond in plain text."

// BuildMessages returns the system and user turns for query in mode.
func BuildMessages(query, mode string) []models.Message {
	return []models.Message{
		{Role: models.RoleSystem, Content: BaseSystemPrompt + "\nActive mode: " + mode + "."},
		{Role: models.RoleUser, Content: query},
	}
}
