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
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/openkobo/koboctl/kobo"
	"github.com/openkobo/koboctl/util"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var outputFile string
var dataQuery string
var submittedAfter string
var startIndex int
var pageLimit int

// networkStats describes network statistics that arise when downloading
// responses from a kpi endpoint.
type networkStats struct {
	requestDuration, processingDuration float64
	totalBytesIn                        int64
}

// downloadPage describes the result of downloading a single page of responses.
type downloadPage struct {
	associatedRequestURL url.URL
	count                int
	results              []kobo.Result
	err                  error
	stats                *networkStats
	errResponse          *util.ErrorResponse
}

// downloadPageError creates a downloadPage instance with an error attached to it.
// The error is formatted using the given format with all potential substitutions.
func downloadPageError(format string, a ...interface{}) downloadPage {
	return downloadPage{
		err: fmt.Errorf(format, a...),
	}
}

// buildDataParams assembles the query parameters of the data endpoint from
// the command flags. A submitted-after shorthand expands to a MongoDB-style
// query on _submission_time and is ignored when an explicit query is given.
func buildDataParams(query string, submittedAfter string, start int, limit int) (url.Values, error) {
	params := url.Values{}

	if strings.HasPrefix(query, "@") {
		fileQuery, err := util.ReadQueryFromFile(query)
		if err != nil {
			return nil, err
		}
		query = fileQuery
	}

	if query != "" {
		if submittedAfter != "" {
			fmt.Fprintln(os.Stderr, "Ignoring --submitted-after because --query is specified.")
		}
		params.Set("query", query)
	} else if submittedAfter != "" {
		params.Set("query", fmt.Sprintf(`{"%s": {"$gt": "%s"}}`, kobo.SubmissionTimeKey, submittedAfter))
	}

	if start > 0 {
		params.Set("start", strconv.Itoa(start))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	return params, nil
}

// downloadResults tries to download all responses of the asset with the given
// UID. The download respects pagination, i.e. it follows the next links until
// there is no other next link.
//
// Downloaded pages as well as errors are sent to the given result channel.
// As soon as an error occurs it is written to the channel and the channel is
// closed thereafter.
func downloadResults(client *kobo.Client, assetUID string, params url.Values, resChannel chan<- downloadPage) {
	defer close(resChannel)

	var requestStart time.Time
	var processingStart time.Time
	var request *http.Request
	var err error
	var nextPageURL *url.URL
	for ok := true; ok; ok = nextPageURL != nil {
		var stats networkStats

		if request == nil {
			request, err = client.NewDataRequest(assetUID, params)
		} else {
			request, err = client.NewPaginatedRequest(nextPageURL)
		}
		if err != nil {
			resChannel <- downloadPageError("could not create kpi endpoint request: %v", err)
			return
		}

		trace := &httptrace.ClientTrace{
			GotConn: func(_ httptrace.GotConnInfo) {
				requestStart = time.Now()
			},
			WroteRequest: func(_ httptrace.WroteRequestInfo) {
				processingStart = time.Now()
			},
			GotFirstResponseByte: func() {
				stats.processingDuration = time.Since(processingStart).Seconds()
			},
		}
		request = request.WithContext(httptrace.WithClientTrace(request.Context(), trace))

		response, err := client.Do(request)
		if err != nil {
			resChannel <- downloadPageError("could not request the kpi endpoint with URL %s: %v", request.URL, err)
			return
		}

		responseBody, err := io.ReadAll(response.Body)
		if err != nil {
			resChannel <- downloadPageError("could not read kpi endpoint response after request to URL %s: %v", request.URL, err)
			return
		}
		response.Body.Close()
		stats.requestDuration = time.Since(requestStart).Seconds()
		stats.totalBytesIn += int64(len(responseBody))

		if response.StatusCode != http.StatusOK {
			page := downloadPageError("request to kpi endpoint with URL %s had a non-ok response status (%d)",
				request.URL, response.StatusCode)
			page.errResponse = util.ReadErrorResponse(response.StatusCode, responseBody)
			page.stats = &stats
			resChannel <- page
			return
		}

		var dataPage kobo.DataPage
		if err := json.Unmarshal(responseBody, &dataPage); err != nil {
			resChannel <- downloadPageError("could not parse kpi endpoint response after request to URL %s: %v", request.URL, err)
			return
		}
		resChannel <- downloadPage{
			associatedRequestURL: *request.URL,
			count:                dataPage.Count,
			results:              dataPage.Results,
			stats:                &stats,
		}

		nextPageURL = nil
		if dataPage.Next != nil {
			nextPageURL, err = url.ParseRequestURI(*dataPage.Next)
			if err != nil {
				resChannel <- downloadPageError("could not parse the next page link within the kpi endpoint response after request to URL %s: %v", request.URL, err)
				return
			}
		}
	}
}

// writeResults writes each response as one compact JSON line to the given
// sink, producing a valid NDJSON stream. Always returns the number of written
// results, also when there is an error.
func writeResults(results []kobo.Result, sink io.Writer) (int, error) {
	var written int
	for _, result := range results {
		line, err := json.Marshal(result)
		if err != nil {
			return written, fmt.Errorf("could not marshal a response for the output file: %v", err)
		}
		if _, err := sink.Write(line); err != nil {
			return written, fmt.Errorf("could not write response to output file: %v", err)
		}
		if _, err := sink.Write([]byte{'\n'}); err != nil {
			return written, fmt.Errorf("could not write response separator to output file: %v", err)
		}
		written++
	}
	return written, nil
}

// downloadProgress sets up the progress bar of paged downloads. The total is
// unknown until the first page arrives, so it starts at zero and is adjusted
// via bar.SetTotal.
func downloadProgress() (*mpb.Progress, *mpb.Bar) {
	progress := mpb.New()
	bar := progress.AddBar(0,
		mpb.BarRemoveOnComplete(),
		mpb.PrependDecorators(
			decor.Name("download "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	return progress, bar
}

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download [asset-uid]",
	Short: "Download submitted responses into an NDJSON file",
	Long: `Downloads the submitted responses of an asset (survey) and puts
them into an NDJSON file, one response per line, answers left as raw codes.

Responses can be limited by a -q/--query flag carrying a MongoDB-style JSON
query (or @file indirection) and by the --submitted-after, --start and
--limit flags.

Example:

	koboctl download --server https://kf.kobotoolbox.org/api/v2 aSNQyCer9CtKWRLKqtgS4q -o responses.ndjson
	koboctl download --server https://kf.kobotoolbox.org/api/v2 aSNQyCer9CtKWRLKqtgS4q --submitted-after 2020-05-14T14:36:20 -o responses.ndjson`,
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
		params, err := buildDataParams(dataQuery, submittedAfter, startIndex, pageLimit)
		if err != nil {
			return err
		}

		var stats util.CommandStats
		startTime := time.Now()

		file := util.CreateOutputFileOrDie(outputFile)
		sink := bufio.NewWriter(file)
		defer file.Close()
		defer file.Sync()
		defer sink.Flush()

		var progress *mpb.Progress
		var bar *mpb.Bar
		if !noProgress {
			progress, bar = downloadProgress()
		}

		pageChannel := make(chan downloadPage, 2)
		go downloadResults(client, args[0], params, pageChannel)

		for page := range pageChannel {
			stats.TotalPages++

			if page.err != nil || page.errResponse != nil {
				if bar != nil {
					bar.Abort(true)
					progress.Wait()
				}
				fmt.Printf("Failed to download responses: %v\n", page.err)

				stats.Error = page.errResponse
				stats.TotalDuration = time.Since(startTime)
				fmt.Println(stats.String())
				os.Exit(1)
			}

			if bar != nil {
				bar.SetTotal(int64(page.count), false)
				bar.IncrBy(len(page.results))
			}

			stats.RequestDurations = append(stats.RequestDurations, page.stats.requestDuration)
			stats.ProcessingDurations = append(stats.ProcessingDurations, page.stats.processingDuration)
			stats.TotalBytesIn += page.stats.totalBytesIn

			written, err := writeResults(page.results, sink)
			stats.ResultsPerPage = append(stats.ResultsPerPage, written)
			if err != nil {
				fmt.Printf("Failed to write downloaded responses received from request to URL %s: %v\n",
					page.associatedRequestURL.String(), err)
				os.Exit(2)
			}
		}
		client.CloseIdleConnections()

		if bar != nil {
			bar.SetTotal(-1, true)
			progress.Wait()
		}

		stats.TotalDuration = time.Since(startTime)
		fmt.Println(stats.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&server, "server", "", "the base URL of the kpi endpoint to use")
	downloadCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "path to the NDJSON file downloaded responses get written to")
	downloadCmd.Flags().StringVarP(&dataQuery, "query", "q", "", "MongoDB-style JSON query or @file")
	downloadCmd.Flags().StringVar(&submittedAfter, "submitted-after", "", "only responses submitted after this ISO timestamp (ignored with --query)")
	downloadCmd.Flags().IntVar(&startIndex, "start", 0, "zero-based index from which the results start")
	downloadCmd.Flags().IntVar(&pageLimit, "limit", 0, "number of results per page (max 30000)")

	_ = downloadCmd.MarkFlagRequired("server")
	_ = downloadCmd.MarkFlagRequired("output-file")
	_ = downloadCmd.MarkFlagFilename("output-file", "ndjson")
}
