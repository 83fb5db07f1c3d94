/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgtony-netloc/netloc/observer"
)

var (
	serverAddress string
	timeout       time.Duration
)

// RootCmd is the netloc-ctl entrypoint; subcommands attach to it in init.
var RootCmd = &cobra.Command{
	Use:   "netloc-ctl",
	Short: "Query a running netloc node's observer interface",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&serverAddress, "server", "127.0.0.1:4737", "observer interface address, host:port")
	RootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "query timeout")

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

// client builds an observer.Client against the --server flag.
func client() *observer.Client {
	return observer.NewClient(serverAddress, timeout)
}

// queryOrFail runs req against client() and exits the process with an
// error message on any transport failure or observer-reported error tag.
func queryOrFail(req observer.Request) observer.Response {
	resp, err := client().Query(req)
	if err != nil {
		fmt.Println("error:", err)
		cobraExit(1)
	}
	if resp.Type == "error" {
		fmt.Println("error:", resp.Error)
		cobraExit(1)
	}
	return resp
}

// cobraExit is a thin indirection over os.Exit so tests can stub it out.
var cobraExit = os.Exit
