package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
	"eddisonso.com/go-weed/pkg/weedlog"
)

func main() {
	master := pflag.String("master", "localhost:9333", "master address")
	replication := pflag.String("replication", "", `replica placement such as "001"`)
	data := pflag.String("data", "hello", "content to write")
	signingKey := pflag.String("signing-key", "", "volume write key, if the cluster requires one")
	keep := pflag.Bool("keep", false, "leave the file in place")
	pflag.Parse()

	logger, err := weedlog.NewLogger(weedlog.Config{Source: "weed-tester", Level: slog.LevelDebug})
	if err != nil {
		slog.Error("failed to create logger", "error", err)
		os.Exit(1)
	}
	defer logger.Close()

	opts := []weed.Option{weed.WithLogger(logger.Logger)}
	if *signingKey != "" {
		opts = append(opts, weed.WithSigningKey([]byte(*signingKey)))
	}
	client, err := weed.New(*master, opts...)
	if err != nil {
		logger.Error("invalid master address", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !run(ctx, logger.Logger, client, []byte(*data), *replication, *keep) {
		os.Exit(1)
	}
}

// run writes payload through a fresh assignment, reads it back and removes it.
func run(ctx context.Context, logger *slog.Logger, client *weed.Client, payload []byte, replication string, keep bool) bool {
	logger.Info("requesting assignment", "master", client.MasterAddress().String(), "replication", replication)
	assignment, err := client.Assign(ctx, &weed.AssignOptions{Replication: replication})
	if err != nil {
		logger.Error("FAILURE: assign", "error", err, "retryable", weed.IsRetryable(err))
		return false
	}
	logger.Info("assigned", "fid", assignment.FileID.String(), "url", assignment.Location.URL, "replicas", len(assignment.Replicas))

	volume, err := client.Volume(assignment.Location)
	if err != nil {
		logger.Error("FAILURE: volume address", "error", err)
		return false
	}
	result, err := volume.UploadBytes(ctx, assignment.FileID, payload, &weed.UploadOptions{Auth: assignment.Auth, SendMD5: true})
	if err != nil {
		logger.Error("FAILURE: upload", "fid", assignment.FileID.String(), "error", err)
		return false
	}
	if err := result.Verify(payload); err != nil {
		logger.Error("FAILURE: write confirmation", "fid", assignment.FileID.String(), "error", err)
		return false
	}
	logger.Info("uploaded", "fid", assignment.FileID.String(), "size", result.Size, "etag", result.ETag)

	got, err := client.Get(ctx, assignment.FileID, nil)
	if err != nil {
		logger.Error("FAILURE: read back", "fid", assignment.FileID.String(), "error", err)
		return false
	}
	if !bytes.Equal(got, payload) {
		logger.Error("FAILURE: content differs", "fid", assignment.FileID.String(), "sent", len(payload), "read", len(got))
		return false
	}

	if !keep {
		if _, err := client.Remove(ctx, assignment.FileID, &weed.DeleteOptions{Auth: assignment.Auth}); err != nil {
			logger.Error("FAILURE: delete", "fid", assignment.FileID.String(), "error", err)
			return false
		}
	}
	logger.Info("SUCCESS", "fid", assignment.FileID.String(), "kept", keep)
	return true
}
