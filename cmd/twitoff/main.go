// Command twitoff serves the TwitOff web pages.
package main

import (
	"log"

	"github.com/patric-chuzhbe/twitoff/internal/app"
	"github.com/patric-chuzhbe/twitoff/internal/logger"
)

func main() {
	myApp, err := app.New()
	if err != nil {
		log.Fatal(err)
	}
	defer myApp.Close()

	if err := myApp.Run(); err != nil {
		logger.Log.Errorw("twitoff stopped", "error", err)
	}
}
