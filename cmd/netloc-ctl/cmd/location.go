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

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dgtony-netloc/netloc/observer"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Print this node's current Vivaldi coordinates",
	Run: func(cmd *cobra.Command, args []string) {
		resp := queryOrFail(observer.Request{Action: observer.ActionGetLocation})
		loc := resp.Location

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"x1", "x2", "height", "pos_err", "iteration"})
		confColor := color.New(color.FgGreen)
		if loc.PosErr > 0.5 {
			confColor = color.New(color.FgYellow)
		}
		table.Append([]string{
			fmt.Sprintf("%.4f", loc.X1),
			fmt.Sprintf("%.4f", loc.X2),
			fmt.Sprintf("%.4f", loc.Height),
			confColor.Sprintf("%.4f", loc.PosErr),
			fmt.Sprintf("%d", loc.Iteration),
		})
		table.Render()
	},
}

func init() {
	RootCmd.AddCommand(locationCmd)
}
