/*
picoc compiles pico programs to C, Lua or JavaScript, and runs them in an
embedded Lua interpreter.
*/
package main

import "picoc/pkg/cli"

func main() {
	cli.Execute()
}
