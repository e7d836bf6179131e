// Copyright 2020 - 2026 The OpenKobo Community
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

package kobo

import "strings"

// MultiLabelSeparator joins the resolved labels of a multi-select answer when
// unpacking is not requested.
const MultiLabelSeparator = "; "

// A Selection is one resolved code of an unpacked multi-select answer.
type Selection struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// A Diagnostic reports a per-field anomaly that was absorbed during labeling:
// a response key that resolves to no question, or an answer code missing from
// its choice list. The raw value is retained in the labeled record either
// way, so diagnostics are informational and never indicate data loss.
type Diagnostic struct {
	Key    string
	Code   string
	Reason string
}

const (
	reasonUnknownQuestion = "no matching question in schema"
	reasonUnknownChoice   = "code not in choice list"
)

var metaKeyPrefixes = []string{"_", "meta/", "formhub/"}

func isMetaKey(key string) bool {
	for _, prefix := range metaKeyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// LabelResult replaces the coded answers of a single response with their
// label strings, resolved against the given schema and choice lists.
//
// Multi-select answers are whitespace-separated code lists. With unpack set,
// they become ordered Selection slices preserving the order the codes appear
// in the raw answer; otherwise the resolved labels are joined with
// MultiLabelSeparator. Repeat group answers (arrays of nested records) are
// labeled recursively.
//
// The function is pure: raw is never mutated and a new record is returned.
// Per-field anomalies never fail the record; the raw value passes through and
// the anomaly is reported in the returned diagnostics.
func LabelResult(raw Result, schema *Schema, lists ChoiceLists, unpack bool) (Result, []Diagnostic) {
	labeled := make(Result, len(raw))
	var diags []Diagnostic

	for key, value := range raw {
		if isMetaKey(key) {
			labeled[key] = value
			continue
		}

		if entries, ok := value.([]any); ok {
			labeled[key] = labelRepeats(entries, schema, lists, unpack, &diags)
			continue
		}

		answer, ok := value.(string)
		if !ok {
			labeled[key] = value
			continue
		}

		parts := strings.Split(key, "/")
		question := schema.Question(parts[:len(parts)-1], parts[len(parts)-1])
		if question == nil {
			labeled[key] = value
			if strings.Contains(key, "/") {
				diags = append(diags, Diagnostic{Key: key, Reason: reasonUnknownQuestion})
			}
			continue
		}

		labeled[key] = labelAnswer(key, answer, question, lists, unpack, &diags)
	}

	return labeled, diags
}

func labelRepeats(entries []any, schema *Schema, lists ChoiceLists, unpack bool, diags *[]Diagnostic) []any {
	labeled := make([]any, 0, len(entries))
	for _, entry := range entries {
		record, ok := entry.(map[string]any)
		if !ok {
			labeled = append(labeled, entry)
			continue
		}
		labeledRecord, recordDiags := LabelResult(record, schema, lists, unpack)
		*diags = append(*diags, recordDiags...)
		labeled = append(labeled, map[string]any(labeledRecord))
	}
	return labeled
}

func labelAnswer(key, answer string, question *Question, lists ChoiceLists, unpack bool, diags *[]Diagnostic) any {
	list, ok := lists[question.ListName]
	if question.ListName == "" || !ok {
		return answer
	}

	switch {
	case strings.HasPrefix(question.Type, "select_multiple"):
		codes := strings.Fields(answer)
		if unpack {
			selections := make([]Selection, 0, len(codes))
			for _, code := range codes {
				selections = append(selections, Selection{
					Code:  code,
					Label: choiceLabel(key, code, list, diags),
				})
			}
			return selections
		}
		labels := make([]string, 0, len(codes))
		for _, code := range codes {
			labels = append(labels, choiceLabel(key, code, list, diags))
		}
		return strings.Join(labels, MultiLabelSeparator)
	case strings.HasPrefix(question.Type, "select_one"):
		return choiceLabel(key, answer, list, diags)
	default:
		return answer
	}
}

// choiceLabel resolves a single answer code against a choice list. Unknown
// codes keep the raw code as the label so data is not silently lost.
func choiceLabel(key, code string, list map[string]Choice, diags *[]Diagnostic) string {
	if choice, ok := list[code]; ok {
		return choice.Label
	}
	*diags = append(*diags, Diagnostic{Key: key, Code: code, Reason: reasonUnknownChoice})
	return code
}
