// Command manage runs administrative tasks against the yeogida database:
//
//	manage migrate
//	manage createsuperuser --id admin --email admin@example.com
//	manage changepassword admin
//
// It reads DB_PATH (and .env) the same way the server does.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
