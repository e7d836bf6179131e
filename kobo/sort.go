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
	"sort"
	"time"
)

// SubmissionTimeKey is the metadata key carrying the submission timestamp of
// a response.
const SubmissionTimeKey = "_submission_time"

// Submission timestamps come without a zone, start/end metadata with zone and
// fractional seconds.
var submissionTimeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05.999-07:00",
}

func submissionTime(result Result) (time.Time, bool) {
	value, ok := result[SubmissionTimeKey].(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range submissionTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SortResultsByTime sorts responses ascending by their submission time,
// descending when reverse is set. The sort is stable; responses with a
// missing or unparseable submission time sort last in either direction,
// keeping their relative order. The input slice is not modified.
func SortResultsByTime(results []Result, reverse bool) []Result {
	sorted := make([]Result, len(results))
	copy(sorted, results)

	sort.SliceStable(sorted, func(i, j int) bool {
		ti, iOK := submissionTime(sorted[i])
		tj, jOK := submissionTime(sorted[j])
		if !iOK || !jOK {
			return iOK && !jOK
		}
		if reverse {
			return tj.Before(ti)
		}
		return ti.Before(tj)
	})

	return sorted
}
