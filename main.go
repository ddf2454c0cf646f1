/*
Copyright © 2026 ソニーレベル <C7kali3@gmail.com>

*/
package main

import "github.com/prototyp3d/prototyp3d/cmd"

func main() {
	cmd.Execute()
}
