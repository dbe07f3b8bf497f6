package main

import (
	"os"

	"eddisonso.com/go-weed/internal/clientcli"
)

func main() {
	os.Exit(clientcli.Execute())
}
