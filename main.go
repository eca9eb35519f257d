package main

import "github.com/jmehdipour/loyalty-backoffice/cmd"

func main() {
	cmd.Execute()
}
