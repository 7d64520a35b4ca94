package main

import "github.com/ybcg-build/ybcg/cmd"

func main() {
	cmd.Execute()
}
