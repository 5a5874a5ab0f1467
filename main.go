package main

import "feedbackapi/internal/app"

func main() {
	app.Main()
}
