// Command authtool edits the flat-text identity store consumed by
// authcored: adding and removing users and roles, setting passwords, and
// displaying a user's resolved ability set.
package main

import "github.com/litehttp/authcore/cmd/authtool/cmd"

func main() {
	cmd.Execute()
}
