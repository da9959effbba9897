package extraction

import (
	"fmt"
	"strings"
)

// recordSchema is the JSON schema for the expected model response.
const recordSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "name":        {"type": "string"},
      "username":    {"type": "string"},
      "email":       {"type": "string"},
      "password":    {"type": "string"},
      "website":     {"type": "string"},
      "description": {"type": "string"}
    },
    "required": ["name", "password"]
  }
}`

const extractionPromptTemplate = `You are extracting saved login credentials from part %d of %d of a document a user exported from a password manager, browser or notes app.

Output ONLY a valid JSON array which complies with the schema given below. Do not include any preamble,
explanation, greeting, markdown or acknowledgment. Start your response directly with [ and end with ].
Your output must exactly follow this schema:

%s

Rules:
- One object per credential. "name" is the service or site the credential belongs to.
- "password" is the secret exactly as written. Never invent, mask or shorten it.
- Omit fields that are not present in the text. Do not guess usernames or websites.
- Ignore column headers, comments and anything that is not a credential.
- If no credential data is present, return [].
- The JSON must parse without errors; no trailing commas and no text outside the array.

Example:
Input: "github  octocat  hunter2  https://github.com"
Output:
[{"name":"GitHub","username":"octocat","password":"hunter2","website":"https://github.com"}]

Text:
"""
%s
"""`

// buildPrompt embeds the chunk text and its 1-based position in the extraction template.
func buildPrompt(text string, chunkIndex, totalChunks int) string {
	return fmt.Sprintf(extractionPromptTemplate,
		chunkIndex+1,
		max(totalChunks, 1),
		recordSchema,
		strings.TrimSpace(text))
}
