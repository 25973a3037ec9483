package main

import "github.com/sitelens/sitelens/cmd"

func main() {
	cmd.Execute()
}
