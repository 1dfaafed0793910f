package main

import "github.com/siliconlad/pybag/cmd/pybag/cmd"

func main() {
	cmd.Execute()
}
