// SPDX-License-Identifier: MPL-2.0

package main

import (
	cmd "pkgdeploy-cli/cmd/pkgdeploy"
)

func main() {
	cmd.Execute()
}
