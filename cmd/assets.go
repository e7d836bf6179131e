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
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"

	"github.com/openkobo/koboctl/kobo"
	"github.com/openkobo/koboctl/util"
	"github.com/spf13/cobra"
)

// fetchAssets pages through the assets endpoint and returns all assets of the
// authenticated account.
func fetchAssets(client *kobo.Client) ([]kobo.Asset, error) {
	var assets []kobo.Asset

	req, err := client.NewAssetListRequest()
	if err != nil {
		return nil, err
	}
	for {
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("non-OK status while fetching the asset list:\n%s",
				util.ReadErrorResponse(resp.StatusCode, body))
		}

		list, err := kobo.ReadAssetList(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		assets = append(assets, list.Results...)

		if list.Next == nil {
			return assets, nil
		}
		nextURL, err := url.ParseRequestURI(*list.Next)
		if err != nil {
			return nil, fmt.Errorf("could not parse the next page link of the asset list: %v", err)
		}
		req, err = client.NewPaginatedRequest(nextURL)
		if err != nil {
			return nil, err
		}
	}
}

func maxWidths(assets []kobo.Asset) (maxNameLen int, maxCountLen int) {
	var maxCount int
	for _, asset := range assets {
		if len(asset.Name) > maxNameLen {
			maxNameLen = len(asset.Name)
		}
		if asset.DeploymentSubmissionCount > maxCount {
			maxCount = asset.DeploymentSubmissionCount
		}
	}
	return maxNameLen, len(fmt.Sprintf("%d", maxCount))
}

// assetsCmd represents the assets command
var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Lists all assets (surveys)",
	Long: `Lists all assets (surveys) of the associated account with their
unique ID and number of submissions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := createClient(); err != nil {
			return err
		}

		assets, err := fetchAssets(client)
		client.CloseIdleConnections()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })

		maxNameLen, maxCountLen := maxWidths(assets)
		for _, asset := range assets {
			fmt.Printf("%-"+fmt.Sprintf("%d", maxNameLen)+"s  %s  %"+fmt.Sprintf("%d", maxCountLen)+"d\n",
				asset.Name, asset.UID, asset.DeploymentSubmissionCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assetsCmd)

	assetsCmd.Flags().StringVar(&server, "server", "", "the base URL of the kpi endpoint to use")

	_ = assetsCmd.MarkFlagRequired("server")
}
