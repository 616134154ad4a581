// Command haruword-admin inspects and migrates the usage log stores.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
