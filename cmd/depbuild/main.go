// Command depbuild downloads, verifies and builds a fixed set of third-party
// C/C++ libraries into a single install prefix.
package main

import "github.com/goplus/depbuild/cmd/depbuild/internal"

func main() {
	internal.Execute()
}
