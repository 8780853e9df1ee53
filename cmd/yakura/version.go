// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/taibuivan/yakura/internal/platform/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", constants.AppName, constants.AppVersion)
		fmt.Printf("  Go: %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
