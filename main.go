package main

import "github.com/theirongolddev/mealplan/cmd"

func main() {
	cmd.Execute()
}
