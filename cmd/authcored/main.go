// Command authcored runs a demo HTTP server exercising the authentication
// core: an identity store loaded from a flat text file, an ability
// resolver, Basic/Digest/Form protocol adapters, a session binder, and the
// authorization gate guarding a handful of example routes.
package main

import "github.com/litehttp/authcore/cmd/authcored/cmd"

var buildVersion = "dev"

func main() {
	cmd.SetVersion(buildVersion)
	cmd.Execute()
}
