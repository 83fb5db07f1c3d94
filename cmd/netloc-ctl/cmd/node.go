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

	"github.com/spf13/cobra"

	"github.com/dgtony-netloc/netloc/observer"
)

var nodeCmd = &cobra.Command{
	Use:   "node <addr>",
	Short: "Print everything known about one peer, by ip:port",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp := queryOrFail(observer.Request{Action: observer.ActionGetNodeInfo, Addr: args[0]})
		n := resp.Node
		fmt.Printf("addr:            %s\n", n.Addr)
		fmt.Printf("name:            %s\n", n.Name)
		fmt.Printf("x1, x2, height:  %.4f, %.4f, %.4f\n", n.Location.X1, n.Location.X2, n.Location.Height)
		fmt.Printf("pos_err:         %.4f\n", n.Location.PosErr)
		fmt.Printf("iteration:       %d\n", n.Location.Iteration)
		fmt.Printf("last updated:    %d\n", n.LastUpdatedSec)
		if n.RTTMeanSec > 0 {
			fmt.Printf("rtt mean/var:    %.6fs / %.6fs\n", n.RTTMeanSec, n.RTTVarianceSec)
		}
	},
}

func init() {
	RootCmd.AddCommand(nodeCmd)
}
