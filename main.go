package main

import "github.com/hogehogei/HogepOS/cmd"

func main() {
	cmd.Execute()
}
