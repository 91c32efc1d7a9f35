// Package main is the segmask command, it segments an image and writes the
// image with everything but the detected objects masked out.
package main

import (
	"fmt"
	"os"

	segcli "github.com/segmask/go-segmask/cli"
	"github.com/segmask/go-segmask/config"
	"github.com/segmask/go-segmask/rknnseg"
	"go.uber.org/zap"
)

func main() {
	app := segcli.NewApp(os.Stdout, os.Stderr, loadModel)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadModel opens the YOLOv8-seg model on the NPU
func loadModel(cfg config.ModelConfig, log *zap.Logger) (segcli.Model, error) {
	seg, err := rknnseg.New(cfg, log)

	if err != nil {
		return nil, err
	}

	return seg, nil
}
