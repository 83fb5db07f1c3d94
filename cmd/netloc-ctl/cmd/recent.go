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
	"github.com/spf13/cobra"

	"github.com/dgtony-netloc/netloc/observer"
)

var recentMax int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recently refreshed peers",
	Run: func(cmd *cobra.Command, args []string) {
		resp := queryOrFail(observer.Request{Action: observer.ActionGetRecentNodes, Max: recentMax})
		printNodeTable(resp.Nodes)
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentMax, "max", "m", 10, "maximum number of peers to print")
	RootCmd.AddCommand(recentCmd)
}
