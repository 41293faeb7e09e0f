package main

import "github.com/stockroom-hq/stockroom-go/cmd/stockroom/cmd"

func main() {
	cmd.Execute()
}
