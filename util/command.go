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

package util

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CommandStats aggregates what happened while a command paged through a kpi
// data endpoint: page and result counts, request/processing latencies in
// seconds and transferred bytes.
type CommandStats struct {
	TotalPages                            int
	ResultsPerPage                        []int
	RequestDurations, ProcessingDurations []float64
	TotalBytesIn                          int64
	TotalDuration                         time.Duration
	Error                                 *ErrorResponse
}

func (cs *CommandStats) String() string {

	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Pages		[total]			%d\n", cs.TotalPages))

	var resultsTotal int
	for _, res := range cs.ResultsPerPage {
		resultsTotal += res
	}
	builder.WriteString(fmt.Sprintf("Results 	[total]			%d\n", resultsTotal))

	if len(cs.ResultsPerPage) > 0 {
		sort.Ints(cs.ResultsPerPage)
		builder.WriteString(fmt.Sprintf("Results/Page	[min, mean, max]	%d, %d, %d\n", cs.ResultsPerPage[0], resultsTotal/len(cs.ResultsPerPage), cs.ResultsPerPage[len(cs.ResultsPerPage)-1]))
	}

	builder.WriteString(fmt.Sprintf("Duration	[total]			%s\n", FmtDurationHumanReadable(cs.TotalDuration)))

	if len(cs.RequestDurations) > 0 {
		p := CalculateDurationStatistics(cs.RequestDurations)
		builder.WriteString(fmt.Sprintf("Requ. Latencies	[mean, 50, 95, 99, max]	%s, %s, %s, %s, %s\n", p.Mean, p.Q50, p.Q95, p.Q99, p.Max))
	}

	if len(cs.ProcessingDurations) > 0 {
		p := CalculateDurationStatistics(cs.ProcessingDurations)
		builder.WriteString(fmt.Sprintf("Proc. Latencies	[mean, 50, 95, 99, max]	%s, %s, %s, %s, %s\n", p.Mean, p.Q50, p.Q95, p.Q99, p.Max))
	}

	totalRequests := len(cs.RequestDurations)
	if totalRequests > 0 {
		builder.WriteString(fmt.Sprintf("Bytes In	[total, mean]		%s, %s\n", FmtBytesHumanReadable(float32(cs.TotalBytesIn)), FmtBytesHumanReadable(float32(cs.TotalBytesIn)/float32(totalRequests))))
	}

	if cs.Error != nil {
		builder.WriteString("\nServer Error:\n")
		builder.WriteString(Indent(2, cs.Error.String()))
	}

	return builder.String()
}
