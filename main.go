package main

import "geniereport/internal/app"

func main() {
	app.Main()
}
