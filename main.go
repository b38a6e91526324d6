package main

import "github.com/journalbrand/compliance/cmd"

func main() {
	cmd.Execute()
}
