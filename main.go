package main

import "github.com/sidereusnuntius/wikifront/cmd"

func main() {
	cmd.Execute()
}
