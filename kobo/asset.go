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

// Package kobo contains the KoboToolbox kpi API client, the asset and
// response model and the transforms that relabel coded responses using the
// survey definition.
package kobo

import "fmt"

// AssetList is the paginated envelope returned by the assets endpoint.
type AssetList struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []Asset `json:"results"`
}

// An Asset is a survey form definition identified by a unique ID on the kpi
// endpoint.
type Asset struct {
	UID                       string       `json:"uid"`
	Name                      string       `json:"name"`
	AssetType                 string       `json:"asset_type"`
	DateModified              string       `json:"date_modified"`
	DeploymentSubmissionCount int          `json:"deployment__submission_count"`
	Content                   AssetContent `json:"content"`
}

// AssetContent carries the raw survey definition: an ordered list of field
// rows and the choice rows of all choice lists.
type AssetContent struct {
	Survey  []SurveyRow `json:"survey"`
	Choices []ChoiceRow `json:"choices"`
}

// A SurveyRow is one raw entry of an asset's survey definition. Rows either
// describe a question, or open/close a group with the begin_group/end_group
// and begin_repeat/end_repeat marker types.
type SurveyRow struct {
	Type               string   `json:"type"`
	Name               string   `json:"name"`
	AutoName           string   `json:"$autoname"`
	Label              []string `json:"label"`
	SelectFromListName string   `json:"select_from_list_name"`
	OrOther            bool     `json:"_or_other"`
}

// A ChoiceRow is one raw entry of an asset's choice definitions, belonging to
// the choice list named by ListName.
type ChoiceRow struct {
	ListName string   `json:"list_name"`
	Name     string   `json:"name"`
	AutoName string   `json:"$autoname"`
	Label    []string `json:"label"`
}

// DataPage is the paginated envelope returned by the data endpoint of an
// asset.
type DataPage struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Result `json:"results"`
}

// A Result is one submitted response: a flat mapping from
// "GROUP_CODE/QUESTION_CODE" keys to coded answers, plus metadata keys such
// as _submission_time. Repeat group answers appear as arrays of nested
// records.
type Result map[string]any

// code returns the stable code of a survey row, preferring the explicit name
// over the server-generated $autoname.
func (r SurveyRow) code() string {
	if r.Name != "" {
		return r.Name
	}
	return r.AutoName
}

// rowLabel returns the first label in the survey's default language, falling
// back to the given code when the row carries no label.
func rowLabel(labels []string, fallback string) string {
	if len(labels) > 0 && labels[0] != "" {
		return labels[0]
	}
	return fallback
}

// ChoicesFromAsset groups the choices (answer options) of a survey into
// ChoiceLists, arranged by their list name. A sequence number is added to
// allow restoring the original order of the choices.
func ChoicesFromAsset(asset *Asset) ChoiceLists {
	lists := make(ChoiceLists)
	sequence := 0
	for _, row := range asset.Content.Choices {
		code := row.Name
		if code == "" {
			code = row.AutoName
		}
		if _, ok := lists[row.ListName]; !ok {
			lists[row.ListName] = make(map[string]Choice)
		}
		lists[row.ListName][code] = Choice{
			Label:    rowLabel(row.Label, code),
			Sequence: sequence,
		}
		sequence++
	}
	return lists
}

// FieldsFromAsset turns the raw survey rows of an asset into the ordered
// field definitions consumed by BuildSchema. The sequence of each field is
// its position in the survey.
//
// Rows without a name and without a group-closing type are rejected, since a
// question that cannot be addressed by code cannot be matched to any response
// key.
func FieldsFromAsset(asset *Asset) ([]Field, error) {
	fields := make([]Field, 0, len(asset.Content.Survey))
	for i, row := range asset.Content.Survey {
		code := row.code()
		if code == "" && row.Type != "end_group" && row.Type != "end_repeat" {
			return nil, fmt.Errorf("survey row %d of type %s has neither name nor $autoname", i, row.Type)
		}
		fields = append(fields, Field{
			Type:     row.Type,
			Name:     code,
			Label:    rowLabel(row.Label, code),
			ListName: row.SelectFromListName,
			OrOther:  row.OrOther,
			Sequence: i,
		})
	}
	return fields, nil
}
