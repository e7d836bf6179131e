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
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/openkobo/koboctl/kobo"
	"github.com/openkobo/koboctl/util"
	"github.com/spf13/cobra"
)

var showChoices bool

// fetchAsset fetches a single asset including its survey content.
func fetchAsset(client *kobo.Client, assetUID string) (*kobo.Asset, error) {
	req, err := client.NewAssetRequest(assetUID)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("non-OK status while fetching asset %s:\n%s",
			assetUID, util.ReadErrorResponse(resp.StatusCode, body))
	}
	asset, err := kobo.ReadAsset(resp.Body)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// buildAssetSchema extracts the schema tree and choice lists from an asset.
func buildAssetSchema(asset *kobo.Asset) (*kobo.Schema, kobo.ChoiceLists, error) {
	lists := kobo.ChoicesFromAsset(asset)
	fields, err := kobo.FieldsFromAsset(asset)
	if err != nil {
		return nil, nil, err
	}
	schema, err := kobo.BuildSchema(fields, lists)
	if err != nil {
		return nil, nil, err
	}
	return schema, lists, nil
}

// schemaNode is a render helper that unifies groups and questions so siblings
// can be ordered by their original sequence.
type schemaNode struct {
	code     string
	sequence int
	group    *kobo.Group
	question *kobo.Question
}

func sortedNodes(group *kobo.Group) []schemaNode {
	nodes := make([]schemaNode, 0, len(group.Groups)+len(group.Questions))
	for code, child := range group.Groups {
		nodes = append(nodes, schemaNode{code: code, sequence: child.Sequence, group: child})
	}
	for code, question := range group.Questions {
		nodes = append(nodes, schemaNode{code: code, sequence: question.Sequence, question: question})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].sequence < nodes[j].sequence })
	return nodes
}

func renderGroup(builder *strings.Builder, group *kobo.Group, indent int) {
	pad := strings.Repeat("  ", indent)
	for _, node := range sortedNodes(group) {
		if node.group != nil {
			marker := "group"
			if node.group.Repeat {
				marker = "repeat group"
			}
			builder.WriteString(fmt.Sprintf("%s%s [%s] %s\n", pad, node.code, marker, node.group.Label))
			renderGroup(builder, node.group, indent+1)
			continue
		}

		builder.WriteString(fmt.Sprintf("%s%s [%s] %s\n", pad, node.code, node.question.Type, node.question.Label))
		if showChoices && node.question.Choices != nil {
			codes := make([]string, 0, len(node.question.Choices))
			for code := range node.question.Choices {
				codes = append(codes, code)
			}
			sort.Slice(codes, func(i, j int) bool {
				return node.question.Choices[codes[i]].Sequence < node.question.Choices[codes[j]].Sequence
			})
			for _, code := range codes {
				builder.WriteString(fmt.Sprintf("%s  - %s: %s\n", pad, code, node.question.Choices[code].Label))
			}
		}
		if node.question.Other != nil {
			builder.WriteString(fmt.Sprintf("%s  - %s\n", pad, node.question.Other.Label))
		}
	}
}

// renderSchema renders the schema tree in presentation order, groups indented
// below their parents.
func renderSchema(schema *kobo.Schema) string {
	builder := strings.Builder{}
	renderGroup(&builder, schema.Root, 0)
	return builder.String()
}

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema [asset-uid]",
	Short: "Shows the question schema of an asset",
	Long: `Fetches an asset (survey definition) and prints its groups and
questions as a tree in original survey order.

Example:

	koboctl schema --server https://kf.kobotoolbox.org/api/v2 aSNQyCer9CtKWRLKqtgS4q --choices`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errors.New("requires an asset UID argument")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := createClient(); err != nil {
			return err
		}

		asset, err := fetchAsset(client, args[0])
		client.CloseIdleConnections()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		schema, _, err := buildAssetSchema(asset)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		fmt.Print(renderSchema(schema))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringVar(&server, "server", "", "the base URL of the kpi endpoint to use")
	schemaCmd.Flags().BoolVar(&showChoices, "choices", false, "also show the choices of select questions")

	_ = schemaCmd.MarkFlagRequired("server")
}
