package utils

import (
	"fmt"
	"strings"
)

// ConfirmOverwrite asks the user to confirm discarding existing data
func ConfirmOverwrite(what string) bool {
	fmt.Printf("%s already exists. Overwrite? [y/N]: ", what)
	var response string
	fmt.Scanln(&response)
	return strings.ToLower(response) == "y"
}
