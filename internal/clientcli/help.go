package clientcli

import (
	"fmt"
	"io"
)

func printShellHelp(w io.Writer) {
	fmt.Fprintln(w, `Commands:
  assign [--count n] [--collection c]             Reserve file ids on the master
  put [--multipart] [--mime type] <file>          Store a local file, print its file id
  upload [--multipart] <fid> <host:port> <file>   Write a file to an assigned id
  get <fid> [-o file]                             Read a file to stdout or a local file
  rm <fid>                                        Delete a file
  lookup <volumeId|fid>                           Show the servers holding a volume
  history                                         List files stored from this machine
  version                                         Show build information
  help                                            Show this help
  exit                                            Quit the shell`)
}
