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

import "fmt"

// A Choice is one answer option of a choice list. The sequence number
// restores the original order of the choices.
type Choice struct {
	Label    string
	Sequence int
}

// ChoiceLists maps a choice list name to its choices, keyed by choice code.
// Built once per asset version and read-only thereafter.
type ChoiceLists map[string]map[string]Choice

// A Field is one entry of the raw survey definition in original order.
type Field struct {
	Type     string
	Name     string
	Label    string
	ListName string
	OrOther  bool
	Sequence int
}

// A Question is a leaf of the schema tree. Choices is only set for select
// questions whose choice list is known; Other is only set for questions that
// allow a free-text "other" alternative.
type Question struct {
	Type     string
	Sequence int
	Label    string
	ListName string
	Choices  map[string]ChoiceOption
	Other    *OtherOption
}

// A ChoiceOption is a choice attached to a question, stamped with the
// select_multiple_option type.
type ChoiceOption struct {
	Label    string
	Type     string
	Sequence int
}

// An OtherOption covers the free-text alternative of an "or other" question.
type OtherOption struct {
	Type     string
	Label    string
	Sequence int
}

// A Group is a named container of questions and nested groups, corresponding
// to a form section. Repeat groups are answered multiple times per response.
//
// Map iteration order is not the presentation order; consumers needing the
// original order must sort by sequence.
type Group struct {
	Label     string
	Sequence  int
	Repeat    bool
	Groups    map[string]*Group
	Questions map[string]*Question
}

// A Schema is the tree of groups and questions extracted from an asset's
// survey definition, rooted at an implicit top-level group. Built once per
// asset version and read-only thereafter.
type Schema struct {
	Root *Group
}

// A MalformedSchemaError reports unbalanced group markers in a survey
// definition. A malformed schema cannot be partially interpreted safely, so
// schema construction aborts.
type MalformedSchemaError struct {
	Reason   string
	Sequence int
}

func (e *MalformedSchemaError) Error() string {
	return fmt.Sprintf("malformed survey schema at field %d: %s", e.Sequence, e.Reason)
}

func newGroup(label string, sequence int, repeat bool) *Group {
	return &Group{
		Label:     label,
		Sequence:  sequence,
		Repeat:    repeat,
		Groups:    make(map[string]*Group),
		Questions: make(map[string]*Question),
	}
}

const choiceOptionType = "select_multiple_option"

// BuildSchema walks the ordered field definitions and produces the nested
// schema tree, merging in the labels of the given choice lists.
//
// Group markers (begin_group/begin_repeat, end_group/end_repeat) drive a
// stack of open groups. More end markers than begin markers, or groups left
// open at the end of input, yield a MalformedSchemaError.
//
// Fields are kept regardless of type; filtering structurally uninteresting
// fields is a caller-side concern.
func BuildSchema(fields []Field, lists ChoiceLists) (*Schema, error) {
	root := newGroup("", -1, false)
	stack := []*Group{root}

	for _, field := range fields {
		top := stack[len(stack)-1]

		switch field.Type {
		case "begin_group", "begin_repeat":
			group := newGroup(field.Label, field.Sequence, field.Type == "begin_repeat")
			top.Groups[field.Name] = group
			stack = append(stack, group)
		case "end_group", "end_repeat":
			if len(stack) == 1 {
				return nil, &MalformedSchemaError{
					Reason:   fmt.Sprintf("%s without matching begin marker", field.Type),
					Sequence: field.Sequence,
				}
			}
			stack = stack[:len(stack)-1]
		default:
			if field.Name == "" {
				continue
			}
			top.Questions[field.Name] = buildQuestion(field, lists)
		}
	}

	if len(stack) > 1 {
		open := stack[len(stack)-1]
		return nil, &MalformedSchemaError{
			Reason:   fmt.Sprintf("%d group(s) left open at end of input", len(stack)-1),
			Sequence: open.Sequence,
		}
	}

	return &Schema{Root: root}, nil
}

func buildQuestion(field Field, lists ChoiceLists) *Question {
	question := &Question{
		Type:     field.Type,
		Sequence: field.Sequence,
		Label:    field.Label,
		ListName: field.ListName,
	}

	if field.ListName != "" {
		if list, ok := lists[field.ListName]; ok {
			question.Choices = make(map[string]ChoiceOption, len(list))
			for code, choice := range list {
				question.Choices[code] = ChoiceOption{
					Label:    choice.Label,
					Type:     choiceOptionType,
					Sequence: choice.Sequence,
				}
			}
		}
	}

	if field.OrOther {
		question.Other = &OtherOption{
			Type:     "_or_other",
			Label:    "Other",
			Sequence: field.Sequence,
		}
	}

	return question
}

// Question resolves a question by walking the schema tree along the given
// group path. Returns nil if any path component or the question code is
// unknown.
func (s *Schema) Question(groupPath []string, code string) *Question {
	group := s.Root
	for _, name := range groupPath {
		child, ok := group.Groups[name]
		if !ok {
			return nil
		}
		group = child
	}
	return group.Questions[code]
}
