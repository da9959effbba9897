package ingestion

import (
	"strings"

	"github.com/poiesic/vaultimport/core"
)

// UnknownServiceName names CSV records when the header has no name column.
const UnknownServiceName = "Unknown Service"

// csvHeaderSynonyms maps lowercase header names onto record fields.
var csvHeaderSynonyms = map[string]string{
	"name":        "name",
	"service":     "name",
	"title":       "name",
	"username":    "username",
	"login":       "username",
	"user":        "username",
	"email":       "email",
	"password":    "password",
	"pass":        "password",
	"website":     "website",
	"url":         "website",
	"site":        "website",
	"description": "description",
	"note":        "description",
	"notes":       "description",
}

// ParseCSV maps a password-manager CSV export directly onto records without a model.
//
// The first line is the header; names are matched case-insensitively against
// common synonyms (service and title for name, login for username, url for
// website, notes for description). Rows without a name or password are
// dropped. When the header has no name column every record is named
// UnknownServiceName. Returns ErrEmptyInput for fewer than two lines.
func ParseCSV(text string) ([]core.CredentialRecord, error) {
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n")), "\n")
	if len(lines) < 2 {
		return nil, ErrEmptyInput
	}

	columns := make(map[string]int)
	for i, header := range splitCSVLine(lines[0]) {
		field, ok := csvHeaderSynonyms[strings.ToLower(header)]
		if !ok {
			continue
		}
		if _, seen := columns[field]; !seen {
			columns[field] = i
		}
	}
	_, hasName := columns["name"]

	records := []core.CredentialRecord{}
	for _, line := range lines[1:] {
		values := splitCSVLine(line)
		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(values) {
				return ""
			}
			return values[i]
		}

		record := core.CredentialRecord{
			Name:        get("name"),
			Username:    get("username"),
			Email:       get("email"),
			Secret:      get("password"),
			Website:     get("website"),
			Description: get("description"),
		}
		if !hasName {
			record.Name = UnknownServiceName
		}
		if record.Name == "" || record.Secret == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// splitCSVLine splits one line on commas outside double quotes.
// Quote characters toggle quoting and are not kept; fields are trimmed.
func splitCSVLine(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for _, r := range strings.TrimRight(line, "\r") {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteRune(r)
		}
	}
	return append(fields, strings.TrimSpace(field.String()))
}
