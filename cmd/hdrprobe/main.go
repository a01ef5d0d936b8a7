// hdrprobe - Per-frame HDR10 luminance and gamut analysis
//
// hdrprobe decodes HDR10 video and measures the peak and average luminance
// and the wide-gamut pixel share of every sampled frame.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"os"

	"github.com/jmylchreest/hdrprobe/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
