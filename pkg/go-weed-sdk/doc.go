// Package weed provides a Go SDK for a master/volume blob store.
//
// Writes take two requests: the master assigns a file id and names the
// volume server that owns it, then the bytes are uploaded to that server
// either raw or as a multipart form. Reads and deletes look the volume up
// on the master and talk to the volume server directly.
package weed
