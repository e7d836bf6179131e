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

package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openkobo/koboctl/kobo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadExportDefinition(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "export.yml")
	require.NoError(t, os.WriteFile(filename, []byte(`asset: aSNQyCer9CtKWRLKqtgS4q
submitted-after: 2020-05-14T14:36:20
unpack-multiples: true
output-file: labeled.ndjson
`), 0644))

	definition, err := readExportDefinition(filename)

	require.NoError(t, err)
	assert.Equal(t, "aSNQyCer9CtKWRLKqtgS4q", definition.Asset)
	assert.Equal(t, "2020-05-14T14:36:20", definition.SubmittedAfter)
	assert.True(t, definition.UnpackMultiples)
	assert.Equal(t, "labeled.ndjson", definition.OutputFile)
	assert.False(t, definition.Reverse)
}

func TestReadExportDefinition_MissingFile(t *testing.T) {
	_, err := readExportDefinition(filepath.Join(t.TempDir(), "nowhere.yml"))

	assert.Error(t, err)
}

func TestFetchAllResults(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") == "1" {
			_, _ = fmt.Fprint(w, `{"count": 2, "next": null, "results": [{"_id": 2}]}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"count": 2, "next": "%s/assets/a1/data?start=1", "results": [{"_id": 1}]}`, server.URL)
	}))
	defer server.Close()

	baseURL, _ := url.ParseRequestURI(server.URL)
	client := kobo.NewClient(*baseURL, kobo.ClientAuth{})

	results, err := fetchAllResults(client, "a1", url.Values{})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, float64(1), results[0]["_id"])
	assert.Equal(t, float64(2), results[1]["_id"])
}

func TestFetchAllResults_ErrorAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail": "Forbidden."}`))
	}))
	defer server.Close()

	baseURL, _ := url.ParseRequestURI(server.URL)
	client := kobo.NewClient(*baseURL, kobo.ClientAuth{})

	_, err := fetchAllResults(client, "a1", url.Values{})

	assert.Error(t, err)
}

func TestExportID(t *testing.T) {
	id := exportID()

	assert.True(t, strings.HasPrefix(id, "urn:uuid:"))
	assert.NotEqual(t, exportID(), id)
}
