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

package kobo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// A Client is a KoboToolbox kpi API client which combines an HTTP client with
// the base URL of a kpi endpoint, e.g. https://kf.kobotoolbox.org/api/v2. At
// minimum, the base URL has to be set.
type Client struct {
	httpClient http.Client
	baseURL    url.URL
	auth       ClientAuth
}

// ClientAuth comprises the authentication information used by the Client in
// order to communicate with a kpi endpoint. Token takes precedence over basic
// authentication when both are set.
type ClientAuth struct {
	Token             string
	BasicAuthUser     string
	BasicAuthPassword string
}

// NewClient creates a new Client with the given base URL and ClientAuth configuration.
func NewClient(baseURL url.URL, auth ClientAuth) *Client {
	return createClient(baseURL, auth, false)
}

// NewClientInsecure creates a new Client as NewClient does but disables TLS security checks. I.e. the client will
// accept any connection to a server without verifying its certificate.
// Use this with great caution as it opens up man-in-the-middle attacks.
func NewClientInsecure(baseURL url.URL, auth ClientAuth) *Client {
	return createClient(baseURL, auth, true)
}

func createClient(baseURL url.URL, auth ClientAuth, insecure bool) *Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100
	t.TLSClientConfig.InsecureSkipVerify = insecure

	return &Client{
		httpClient: http.Client{Transport: t},
		baseURL:    baseURL,
		auth:       auth,
	}
}

const contentTypeJson = "application/json"

// NewAssetListRequest creates a new request for the list of all assets
// (surveys) of the authenticated account. Uses the base URL from the client
// and sets the JSON Accept header. Otherwise it's identical to
// http.NewRequest.
func (c *Client) NewAssetListRequest() (*http.Request, error) {
	req, err := http.NewRequest("GET", c.baseURL.JoinPath("assets").String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", contentTypeJson)
	return req, nil
}

// NewAssetRequest creates a new request for a single asset (survey
// definition) identified by its unique ID.
func (c *Client) NewAssetRequest(assetUID string) (*http.Request, error) {
	req, err := http.NewRequest("GET", c.baseURL.JoinPath("assets", assetUID).String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", contentTypeJson)
	return req, nil
}

// NewDataRequest creates a new request for one page of submitted responses of
// the asset identified by assetUID. The params can carry a MongoDB-style
// `query` filter as well as `start` and `limit` paging parameters.
func (c *Client) NewDataRequest(assetUID string, params url.Values) (*http.Request, error) {
	_url := c.baseURL.JoinPath("assets", assetUID, "data")
	_url.RawQuery = params.Encode()
	req, err := http.NewRequest("GET", _url.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", contentTypeJson)
	return req, nil
}

// NewPaginatedRequest creates a new request based on a pagination link
// received from a kpi endpoint. It sets the JSON Accept header and is
// otherwise identical to http.NewRequest.
func (c *Client) NewPaginatedRequest(paginationURL *url.URL) (*http.Request, error) {
	req, err := http.NewRequest("GET", paginationURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("Accept", contentTypeJson)
	return req, nil
}

// Do calls Do on the HTTP client of the kpi client after applying the
// configured authentication.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if len(c.auth.Token) != 0 {
		req.Header.Set("Authorization", fmt.Sprintf("Token %s", c.auth.Token))
	} else if len(c.auth.BasicAuthUser) != 0 {
		req.SetBasicAuth(c.auth.BasicAuthUser, c.auth.BasicAuthPassword)
	}

	return c.httpClient.Do(req)
}

// CloseIdleConnections calls CloseIdleConnections on the HTTP client of the
// kpi client.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// ReadAssetList reads and unmarshals a paginated asset list.
func ReadAssetList(r io.Reader) (AssetList, error) {
	var list AssetList
	body, err := io.ReadAll(r)
	if err != nil {
		return list, err
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return list, err
	}
	return list, nil
}

// ReadAsset reads and unmarshals a single asset.
func ReadAsset(r io.Reader) (Asset, error) {
	var asset Asset
	body, err := io.ReadAll(r)
	if err != nil {
		return asset, err
	}
	if err := json.Unmarshal(body, &asset); err != nil {
		return asset, err
	}
	return asset, nil
}

// ReadDataPage reads and unmarshals one page of submitted responses.
func ReadDataPage(r io.Reader) (DataPage, error) {
	var page DataPage
	body, err := io.ReadAll(r)
	if err != nil {
		return page, err
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return page, err
	}
	return page, nil
}
