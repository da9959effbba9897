// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extraction

import "strings"

// recordKeys are the only object keys repairJSON will quote. Anything else
// is left for json.Unmarshal to reject.
var recordKeys = []string{"name", "username", "email", "password", "website", "description"}

// repairJSON fixes the two slips models make most often in credential arrays:
// record keys missing one or both quotes (`password":` or `password:`) and a
// trailing comma before a closing bracket. It only rewrites text outside
// string literals, so values and well-formed keys are never touched.
func repairJSON(s string) string {
	var out strings.Builder
	out.Grow(len(s) + 16)

	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]

		if inString {
			out.WriteByte(ch)
			switch ch {
			case '\\':
				if i+1 < len(s) {
					i++
					out.WriteByte(s[i])
				}
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			out.WriteByte(ch)
		case ',':
			if next := skipSpace(s, i+1); next < len(s) && (s[next] == ']' || s[next] == '}') {
				continue
			}
			out.WriteByte(ch)
			i = quoteRecordKey(s, i+1, &out)
		case '{':
			out.WriteByte(ch)
			i = quoteRecordKey(s, i+1, &out)
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}

// quoteRecordKey looks for a bare record key starting at pos, after any
// whitespace. When one is found it writes the whitespace and the quoted key
// to out and returns the index of the last byte consumed. Otherwise it
// writes nothing and returns pos-1 so scanning resumes at pos.
func quoteRecordKey(s string, pos int, out *strings.Builder) int {
	start := skipSpace(s, pos)
	for _, key := range recordKeys {
		if !strings.HasPrefix(s[start:], key) {
			continue
		}
		end := start + len(key)
		// password":  or  password:
		if end < len(s) && s[end] == '"' {
			end++
		}
		if colon := skipSpace(s, end); colon >= len(s) || s[colon] != ':' {
			continue
		}
		out.WriteString(s[pos:start])
		out.WriteString(`"` + key + `"`)
		return end - 1
	}
	return pos - 1
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
