package main

import "github.com/natterhub/natter/cmd"

func main() {
	cmd.Execute()
}
