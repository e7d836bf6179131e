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

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fruitLists() ChoiceLists {
	return ChoiceLists{
		"fruits": {
			"a": {Label: "Apple", Sequence: 0},
			"b": {Label: "Banana", Sequence: 1},
			"c": {Label: "Cherry", Sequence: 2},
		},
	}
}

func surveyFields() []Field {
	return []Field{
		{Type: "start", Name: "start", Label: "start", Sequence: 0},
		{Type: "begin_group", Name: "intro", Label: "Introduction", Sequence: 1},
		{Type: "text", Name: "name", Label: "Your name", Sequence: 2},
		{Type: "select_one", Name: "favorite", Label: "Favorite fruit", ListName: "fruits", Sequence: 3},
		{Type: "begin_group", Name: "details", Label: "Details", Sequence: 4},
		{Type: "select_multiple", Name: "eaten", Label: "Fruits eaten today", ListName: "fruits", OrOther: true, Sequence: 5},
		{Type: "end_group", Sequence: 6},
		{Type: "end_group", Sequence: 7},
		{Type: "begin_repeat", Name: "visits", Label: "Visits", Sequence: 8},
		{Type: "integer", Name: "duration", Label: "Duration", Sequence: 9},
		{Type: "end_repeat", Sequence: 10},
	}
}

func TestBuildSchema(t *testing.T) {
	schema, err := BuildSchema(surveyFields(), fruitLists())
	require.NoError(t, err)

	t.Run("GroupNestingMirrorsMarkers", func(t *testing.T) {
		intro := schema.Root.Groups["intro"]
		require.NotNil(t, intro)
		assert.Equal(t, "Introduction", intro.Label)
		assert.False(t, intro.Repeat)

		details := intro.Groups["details"]
		require.NotNil(t, details)
		assert.NotNil(t, details.Questions["eaten"])

		visits := schema.Root.Groups["visits"]
		require.NotNil(t, visits)
		assert.True(t, visits.Repeat)
		assert.NotNil(t, visits.Questions["duration"])
	})

	t.Run("SequencesFollowFieldOrder", func(t *testing.T) {
		assert.Equal(t, 0, schema.Root.Questions["start"].Sequence)
		assert.Equal(t, 2, schema.Root.Groups["intro"].Questions["name"].Sequence)
		assert.Equal(t, 3, schema.Root.Groups["intro"].Questions["favorite"].Sequence)
		assert.Equal(t, 5, schema.Root.Groups["intro"].Groups["details"].Questions["eaten"].Sequence)
		assert.Equal(t, 9, schema.Root.Groups["visits"].Questions["duration"].Sequence)
	})

	t.Run("ChoicesCopiedAndStamped", func(t *testing.T) {
		favorite := schema.Root.Groups["intro"].Questions["favorite"]
		require.Len(t, favorite.Choices, 3)
		assert.Equal(t, "Banana", favorite.Choices["b"].Label)
		assert.Equal(t, 1, favorite.Choices["b"].Sequence)
		assert.Equal(t, "select_multiple_option", favorite.Choices["b"].Type)
	})

	t.Run("OrOtherGetsOtherEntry", func(t *testing.T) {
		eaten := schema.Root.Groups["intro"].Groups["details"].Questions["eaten"]
		require.NotNil(t, eaten.Other)
		assert.Equal(t, "_or_other", eaten.Other.Type)
		assert.Equal(t, "Other", eaten.Other.Label)
		assert.Equal(t, eaten.Sequence, eaten.Other.Sequence)
	})

	t.Run("PlainQuestionHasNoChoices", func(t *testing.T) {
		name := schema.Root.Groups["intro"].Questions["name"]
		assert.Nil(t, name.Choices)
		assert.Nil(t, name.Other)
	})
}

func TestBuildSchema_MissingChoiceList(t *testing.T) {
	fields := []Field{
		{Type: "select_one", Name: "q1", Label: "Q1", ListName: "nowhere", Sequence: 0},
	}

	schema, err := BuildSchema(fields, ChoiceLists{})
	require.NoError(t, err)
	assert.Nil(t, schema.Root.Questions["q1"].Choices)
}

func TestBuildSchema_UnbalancedMarkers(t *testing.T) {
	t.Run("EndWithoutBegin", func(t *testing.T) {
		fields := []Field{
			{Type: "text", Name: "q1", Label: "Q1", Sequence: 0},
			{Type: "end_group", Sequence: 1},
		}

		_, err := BuildSchema(fields, ChoiceLists{})

		var malformed *MalformedSchemaError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, 1, malformed.Sequence)
	})

	t.Run("BeginWithoutEnd", func(t *testing.T) {
		fields := []Field{
			{Type: "begin_group", Name: "g1", Label: "G1", Sequence: 0},
			{Type: "text", Name: "q1", Label: "Q1", Sequence: 1},
		}

		_, err := BuildSchema(fields, ChoiceLists{})

		var malformed *MalformedSchemaError
		require.True(t, errors.As(err, &malformed))
	})

	t.Run("UnbalancedRepeatMarkers", func(t *testing.T) {
		fields := []Field{
			{Type: "end_repeat", Sequence: 0},
		}

		_, err := BuildSchema(fields, ChoiceLists{})

		var malformed *MalformedSchemaError
		require.True(t, errors.As(err, &malformed))
	})
}

func TestSchemaQuestion(t *testing.T) {
	schema, err := BuildSchema(surveyFields(), fruitLists())
	require.NoError(t, err)

	t.Run("ResolvesNestedPath", func(t *testing.T) {
		question := schema.Question([]string{"intro", "details"}, "eaten")
		require.NotNil(t, question)
		assert.Equal(t, "select_multiple", question.Type)
	})

	t.Run("ResolvesRootQuestion", func(t *testing.T) {
		assert.NotNil(t, schema.Question(nil, "start"))
	})

	t.Run("UnknownGroupIsNil", func(t *testing.T) {
		assert.Nil(t, schema.Question([]string{"nowhere"}, "eaten"))
	})

	t.Run("UnknownQuestionIsNil", func(t *testing.T) {
		assert.Nil(t, schema.Question([]string{"intro"}, "nowhere"))
	})
}
