package clientcli

import (
	"fmt"
	"strconv"
	"strings"

	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
)

// parseArgs splits a shell line on blanks, honouring single and double quotes.
func parseArgs(line string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	for _, r := range line {
		if inQuote {
			if r == quoteChar {
				inQuote = false
			} else {
				current.WriteRune(r)
			}
		} else {
			if r == '"' || r == '\'' {
				inQuote = true
				quoteChar = r
			} else if r == ' ' || r == '\t' {
				if current.Len() > 0 {
					args = append(args, current.String())
					current.Reset()
				}
			} else {
				current.WriteRune(r)
			}
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// parseVolumeArg accepts either a bare volume id or a file id.
func parseVolumeArg(arg string) (uint32, error) {
	if strings.Contains(arg, ",") {
		fid, err := weed.ParseFileID(arg)
		if err != nil {
			return 0, err
		}
		return fid.VolumeID, nil
	}
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid volume id %q", arg)
	}
	return uint32(id), nil
}
