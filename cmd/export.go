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
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/openkobo/koboctl/data"
	"github.com/openkobo/koboctl/kobo"
	"github.com/openkobo/koboctl/util"
	"github.com/spf13/cobra"
)

var definitionFile string
var unpackMultiples bool
var exportReverse bool

func readExportDefinition(filename string) (*data.ExportDefinition, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	definition := data.ExportDefinition{}

	if err := yaml.Unmarshal(file, &definition); err != nil {
		return nil, err
	}
	return &definition, nil
}

// mergeExportDefinition fills every setting not given on the command line
// from the export definition. Explicit flags win.
func mergeExportDefinition(cmd *cobra.Command, definition *data.ExportDefinition) {
	if !cmd.Flags().Changed("query") && definition.Query != "" {
		dataQuery = definition.Query
	}
	if !cmd.Flags().Changed("submitted-after") && definition.SubmittedAfter != "" {
		submittedAfter = definition.SubmittedAfter
	}
	if !cmd.Flags().Changed("output-file") && definition.OutputFile != "" {
		outputFile = definition.OutputFile
	}
	if !cmd.Flags().Changed("unpack-multiples") {
		unpackMultiples = definition.UnpackMultiples
	}
	if !cmd.Flags().Changed("reverse") {
		exportReverse = definition.Reverse
	}
}

// fetchAllResults pages through the data endpoint of the given asset and
// materializes all responses in memory.
func fetchAllResults(client *kobo.Client, assetUID string, params url.Values) ([]kobo.Result, error) {
	pageChannel := make(chan downloadPage, 2)
	go downloadResults(client, assetUID, params, pageChannel)

	var results []kobo.Result
	for page := range pageChannel {
		if page.err != nil {
			return nil, page.err
		}
		results = append(results, page.results...)
	}
	return results, nil
}

func exportID() string {
	myUuid, err := uuid.NewRandom()
	if err != nil {
		return "urn:uuid:unknown"
	}
	return "urn:uuid:" + myUuid.String()
}

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [asset-uid]",
	Short: "Export labeled responses into an NDJSON file",
	Long: `Downloads the submitted responses of an asset (survey), resolves
question and answer codes into their labels using the asset's schema and
writes the labeled responses, sorted by submission time, into an NDJSON file.

With --unpack-multiples, multi-select answers become ordered lists of
{code, label} pairs in the order the respondent selected them; otherwise the
labels are joined into a single string.

All settings can also come from a YAML export definition given with
-f/--definition; explicit flags override the definition.

Example:

	koboctl export --server https://kf.kobotoolbox.org/api/v2 aSNQyCer9CtKWRLKqtgS4q -o labeled.ndjson --unpack-multiples
	koboctl export --server https://kf.kobotoolbox.org/api/v2 -f export.yml`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 && definitionFile == "" {
			return errors.New("requires an asset UID argument or an export definition")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		assetUID := ""
		if len(args) > 0 {
			assetUID = args[0]
		}

		if definitionFile != "" {
			definition, err := readExportDefinition(definitionFile)
			if err != nil {
				return err
			}
			mergeExportDefinition(cmd, definition)
			if assetUID == "" {
				assetUID = definition.Asset
			}
		}
		if assetUID == "" {
			return errors.New("the export definition names no asset")
		}
		if outputFile == "" {
			return errors.New("requires an output file")
		}

		if err := createClient(); err != nil {
			return err
		}
		params, err := buildDataParams(dataQuery, submittedAfter, 0, 0)
		if err != nil {
			return err
		}

		startTime := time.Now()

		asset, err := fetchAsset(client, assetUID)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		schema, lists, err := buildAssetSchema(asset)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		results, err := fetchAllResults(client, assetUID, params)
		client.CloseIdleConnections()
		if err != nil {
			fmt.Printf("Failed to download responses: %v\n", err)
			os.Exit(1)
		}
		results = kobo.SortResultsByTime(results, exportReverse)

		file := util.CreateOutputFileOrDie(outputFile)
		sink := bufio.NewWriter(file)
		defer file.Close()
		defer file.Sync()
		defer sink.Flush()

		var diags []kobo.Diagnostic
		var written int
		for _, result := range results {
			labeled, resultDiags := kobo.LabelResult(result, schema, lists, unpackMultiples)
			diags = append(diags, resultDiags...)

			line, err := json.Marshal(labeled)
			if err != nil {
				fmt.Printf("Failed to marshal a labeled response: %v\n", err)
				os.Exit(2)
			}
			if _, err := sink.Write(append(line, '\n')); err != nil {
				fmt.Printf("Failed to write a labeled response to %s: %v\n", outputFile, err)
				os.Exit(2)
			}
			written++
		}

		fmt.Printf("Export      [id]     %s\n", exportID())
		fmt.Printf("Asset       [uid]    %s\n", assetUID)
		fmt.Printf("Responses   [total]  %d\n", written)
		fmt.Printf("Duration    [total]  %s\n", util.FmtDurationHumanReadable(time.Since(startTime)))

		if len(diags) > 0 {
			fmt.Printf("\nLabeling fell back to raw values %d time(s):\n", len(diags))
			for _, diag := range diags {
				if diag.Code != "" {
					fmt.Printf("  %s: %s (%s)\n", diag.Key, diag.Reason, diag.Code)
				} else {
					fmt.Printf("  %s: %s\n", diag.Key, diag.Reason)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&server, "server", "", "the base URL of the kpi endpoint to use")
	exportCmd.Flags().StringVarP(&definitionFile, "definition", "f", "", "path to a YAML export definition")
	exportCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "path to the NDJSON file labeled responses get written to")
	exportCmd.Flags().StringVarP(&dataQuery, "query", "q", "", "MongoDB-style JSON query or @file")
	exportCmd.Flags().StringVar(&submittedAfter, "submitted-after", "", "only responses submitted after this ISO timestamp (ignored with --query)")
	exportCmd.Flags().BoolVar(&unpackMultiples, "unpack-multiples", false, "expand multi-select answers into {code, label} lists")
	exportCmd.Flags().BoolVar(&exportReverse, "reverse", false, "sort responses by submission time in descending order")

	_ = exportCmd.MarkFlagRequired("server")
	_ = exportCmd.MarkFlagFilename("definition", "yml", "yaml")
	_ = exportCmd.MarkFlagFilename("output-file", "ndjson")
}
