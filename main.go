// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/inspiration-station/packager/cmd/packager"

func main() {
	cmd.Execute()
}
