/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

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
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notargets/xfer/mesh"
	"github.com/notargets/xfer/partition"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Balance a demonstration mesh with METIS graph partitioning",
	Long: `Builds the demonstration quad mesh and balances its element adjacency
graph into NumRanks parts, reporting the per-part element counts. Use it to
rebalance a primary decomposition before coupling.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfile(func() error {
			n, _ := cmd.Flags().GetInt("n")
			m := mesh.NewManager(2)
			m.AddBlock(mesh.Quad2DMesh(n, n, 0, float64(n), 0, float64(n), 0))

			mp := partition.NewMetis(m, partition.DefaultMetisConfig(int32(cfg.NumRanks)))
			part, err := mp.Partition()
			if err != nil {
				return err
			}
			counts := make([]int, cfg.NumRanks)
			for _, p := range part {
				counts[p]++
			}
			fmt.Printf("balance: %d elements into %d parts: %v\n", len(part), cfg.NumRanks, counts)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().Int("n", 16, "mesh cells per axis")
}
