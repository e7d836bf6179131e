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
	"net/url"
	"os"

	"github.com/openkobo/koboctl/kobo"
	"github.com/spf13/cobra"
)

var server string
var disableTlsSecurity bool
var token string
var basicAuthUser string
var basicAuthPassword string
var noProgress bool

var client *kobo.Client

func createClient() error {
	baseURL, err := url.ParseRequestURI(server)
	if err != nil {
		return fmt.Errorf("could not parse server's base URL: %v", err)
	}

	if disableTlsSecurity {
		client = kobo.NewClientInsecure(*baseURL, clientAuth())
	} else {
		client = kobo.NewClient(*baseURL, clientAuth())
	}
	return nil
}

func clientAuth() kobo.ClientAuth {
	return kobo.ClientAuth{
		Token:             token,
		BasicAuthUser:     basicAuthUser,
		BasicAuthPassword: basicAuthPassword,
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "koboctl",
	Short: "Work with KoboToolbox surveys from the command line",
	Long: `koboctl is a command line tool for the KoboToolbox kpi API.

Currently you can list surveys, inspect their question schema, download
submitted responses into an NDJSON file and export responses with question
and answer labels resolved.`,
	Version: "0.4.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&disableTlsSecurity, "insecure", "k", false, "allow insecure server connections when using SSL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "API token for authentication")
	rootCmd.PersistentFlags().StringVar(&basicAuthUser, "user", "", "user information for basic authentication")
	rootCmd.PersistentFlags().StringVar(&basicAuthPassword, "password", "", "password information for basic authentication")
	rootCmd.PersistentFlags().BoolVarP(&noProgress, "no-progress", "", false, "don't show progress bar")
}
