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
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/xfer/config"
)

var (
	cfgFile     string
	profileRun bool
	cfg         *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "xfer",
	Short: "Parallel rendezvous solution transfer between decomposed domains",
	Long: `xfer builds a shared-domain map between a distributed source mesh (or
geometry collection) and a distributed target point cloud, then transfers
field values across it. The scenario command runs the canned end-to-end
couplings as executable demonstrations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.Print()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("error: %s\n", err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "I", "", "YAML configuration file (default is $HOME/.xfer/config.yaml if present)")
	rootCmd.PersistentFlags().BoolVar(&profileRun, "profile", false, "write a CPU profile for the run")

	cobra.OnInitialize(func() {
		if cfgFile == "" {
			if p, err := config.DefaultPath(); err == nil {
				if _, err := os.Stat(p); err == nil {
					cfgFile = p
				}
			}
		}
	})
}

// withProfile wraps fn with CPU profiling when --profile is set.
func withProfile(fn func() error) error {
	if profileRun {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}
	return fn()
}
