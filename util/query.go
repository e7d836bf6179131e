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
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ReadQueryFromFile reads a file and returns the content as a MongoDB-style
// JSON query usable with the kpi data endpoint.
//
// The filename is expected to start with a `@` which is stripped of.
func ReadQueryFromFile(filename string) (string, error) {
	b, err := os.ReadFile(strings.TrimPrefix(filename, "@"))
	if err != nil {
		return "", fmt.Errorf("error while reading file: %s: %w", filename, err)
	}
	query := strings.TrimSpace(string(b))
	if !json.Valid([]byte(query)) {
		return "", fmt.Errorf("error while parsing query: file %s does not contain valid JSON", filename)
	}
	return query, nil
}
