// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"github.com/spf13/cobra"

	"github.com/taibuivan/yakura/internal/platform/constants"
)

var rootCmd = &cobra.Command{
	Use:   "yakura",
	Short: "Webtoon chapter translation worker",
	Long: `Yakura turns raw webtoon chapters into translated, typeset pages.

The build pipeline:
  - Chapter scraping with per-site adapters
  - Text detection through the OCR sidecar
  - Glossary-pinned translation (LLM or free MT cascade)
  - Text erasure and typesetting
  - Result caching and catalog publishing

Run "yakura serve" for the worker with its internal API, or
"yakura translate" for a one-shot build that needs no infrastructure.`,
	Version:      constants.AppVersion,
	SilenceUsage: true,
}
