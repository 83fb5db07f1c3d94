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

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dgtony-netloc/netloc/observer"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Print every peer this node currently knows about",
	Run: func(cmd *cobra.Command, args []string) {
		resp := queryOrFail(observer.Request{Action: observer.ActionGetFullMap})
		printNodeTable(resp.Nodes)
	},
}

func init() {
	RootCmd.AddCommand(mapCmd)
}

func printNodeTable(nodes []observer.NodeView) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(24)
	table.SetHeader([]string{"addr", "name", "x1", "x2", "pos_err", "last seen"})
	for _, n := range nodes {
		table.Append([]string{
			n.Addr,
			n.Name,
			fmt.Sprintf("%.4f", n.Location.X1),
			fmt.Sprintf("%.4f", n.Location.X2),
			fmt.Sprintf("%.4f", n.Location.PosErr),
			time.Unix(n.LastUpdatedSec, 0).Format(time.RFC3339),
		})
	}
	table.Render()
}
