package main

import "github.com/ZanzyTHEbar/boxel-survey/cmd"

func main() {
	cmd.Execute()
}
