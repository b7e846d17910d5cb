/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/emerginginv/trace-aid-sub002/cmd"

func main() {
	cmd.Execute()
}
