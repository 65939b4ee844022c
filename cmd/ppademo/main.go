// Command ppademo drives the PPA engines through a small picture pipeline:
// it fills a canvas, scales and rotates a gradient into a layer, blends the
// layer over the canvas and saves the result as PNG.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
