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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommandStatsString(t *testing.T) {
	t.Run("PagesAndResults", func(t *testing.T) {
		stats := CommandStats{
			TotalPages:     2,
			ResultsPerPage: []int{30000, 1500},
			TotalDuration:  3 * time.Second,
		}

		s := stats.String()

		assert.Contains(t, s, "Pages")
		assert.Contains(t, s, "2")
		assert.Contains(t, s, "31500")
	})

	t.Run("ErrorSection", func(t *testing.T) {
		stats := CommandStats{
			TotalPages: 1,
			Error:      &ErrorResponse{StatusCode: 403, Detail: "Forbidden."},
		}

		s := stats.String()

		assert.Contains(t, s, "Server Error:")
		assert.Contains(t, s, "403")
	})

	t.Run("LatenciesOnlyWithDurations", func(t *testing.T) {
		stats := CommandStats{TotalPages: 1}

		s := stats.String()

		assert.NotContains(t, s, "Requ. Latencies")
		assert.NotContains(t, s, "Bytes In")
	})
}
