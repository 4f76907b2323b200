package main

import "github.com/staffsync/staff-management/cmd"

func main() {
	cmd.Execute()
}
