package main

import (
	"github.com/codepair/core/internal/app"
	"github.com/codepair/core/internal/config"
)

func main() {
	app.Go(config.Load())
}
