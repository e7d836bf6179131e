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
	"strings"
)

// ErrorResponse represents an error returned from a kpi endpoint. Error
// bodies usually carry a single detail message; anything else ends up in
// OtherError verbatim.
type ErrorResponse struct {
	StatusCode int
	Detail     string
	OtherError string
}

// ReadErrorResponse builds an ErrorResponse from a non-OK response body.
// kpi error bodies have the form {"detail": "..."}; bodies that don't parse
// are kept as-is.
func ReadErrorResponse(statusCode int, body []byte) *ErrorResponse {
	errRes := &ErrorResponse{StatusCode: statusCode}

	payload := struct {
		Detail string `json:"detail"`
	}{}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != "" {
		errRes.Detail = payload.Detail
	} else if len(body) > 0 {
		errRes.OtherError = string(body)
	}

	return errRes
}

// String returns the ErrorResponse in a default formatted way.
func (errRes *ErrorResponse) String() string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("StatusCode  : %d\n", errRes.StatusCode))
	if len(errRes.Detail) > 0 {
		builder.WriteString(fmt.Sprintf("Detail      : %s\n", IndentExceptFirstLine(14, errRes.Detail)))
	}
	if len(errRes.OtherError) > 0 {
		builder.WriteString(fmt.Sprintf("Error       : %s\n", IndentExceptFirstLine(14, errRes.OtherError)))
	}
	return builder.String()
}

func Indent(spaces int, v string) string {
	pad := strings.Repeat(" ", spaces)
	return pad + IndentExceptFirstLine(spaces, v)
}

func IndentExceptFirstLine(spaces int, v string) string {
	pad := strings.Repeat(" ", spaces)
	return strings.ReplaceAll(v, "\n", "\n"+pad)
}
