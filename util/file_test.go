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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOutputFileOrDie(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.ndjson")

	file := CreateOutputFileOrDie(filename)
	defer file.Close()

	require.NotNil(t, file)
	info, err := os.Stat(filename)
	require.NoError(t, err)
	assert.False(t, info.IsDir())
}
