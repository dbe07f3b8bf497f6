package clientcli

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"eddisonso.com/go-weed/internal/buildinfo"
	"eddisonso.com/go-weed/internal/journal"
	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
)

// assignFlags are the placement flags shared by assign and put.
type assignFlags struct {
	count       int
	collection  string
	replication string
	dataCenter  string
	rack        string
	dataNode    string
	ttl         string
}

func (f *assignFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.collection, "collection", "c", "", "collection to place the file in")
	fs.StringVarP(&f.replication, "replication", "r", "", `replica placement such as "001"`)
	fs.StringVar(&f.dataCenter, "data-center", "", "preferred data center")
	fs.StringVar(&f.rack, "rack", "", "preferred rack")
	fs.StringVar(&f.dataNode, "data-node", "", "preferred volume server, host:port")
	fs.StringVar(&f.ttl, "ttl", "", `time to live such as "3d"`)
}

// options merges the flags over the configured defaults.
func (f *assignFlags) options(a *App) (*weed.AssignOptions, error) {
	opts := a.cfg.AssignDefaults()
	opts.Count = f.count
	if f.collection != "" {
		opts.Collection = f.collection
	}
	if f.replication != "" {
		opts.Replication = f.replication
	}
	if f.dataCenter != "" {
		opts.DataCenter = f.dataCenter
	}
	opts.Rack = f.rack
	opts.DataNode = f.dataNode
	ttl, err := weed.ParseTTL(f.ttl)
	if err != nil {
		return nil, err
	}
	opts.TTL = ttl
	return &opts, nil
}

func newAssignCommand(a *App) *cobra.Command {
	var flags assignFlags
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Reserve file ids on the master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(a)
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()

			assignment, err := a.client.Assign(ctx, opts)
			if err != nil {
				return err
			}
			renderAssignment(a.out, assignment)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&flags.count, "count", "n", 0, "number of ids to reserve")
	return cmd
}

// uploadFlags describe the content of a write.
type uploadFlags struct {
	multipart bool
	mimeType  string
	name      string
	ttl       string
}

func (f *uploadFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&f.multipart, "multipart", false, "send the file as a multipart form instead of a raw body")
	fs.StringVar(&f.mimeType, "mime", "", "content type (guessed from the file extension by default)")
	fs.StringVar(&f.name, "name", "", "file name stored with a multipart upload (default is the local base name)")
}

// upload is a local file prepared for writing.
type upload struct {
	data    []byte
	name    string
	payload weed.Payload
	opts    *weed.UploadOptions
}

func (f *uploadFlags) prepare(localPath string, ttl weed.TTL) (*upload, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", localPath)
	}
	name := f.name
	if name == "" {
		name = filepath.Base(localPath)
	}
	mimeType := f.mimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}

	u := &upload{
		data: data,
		name: name,
		opts: &weed.UploadOptions{MimeType: mimeType, FileName: name, TTL: ttl, SendMD5: true},
	}
	if f.multipart {
		u.payload = weed.MultipartPayload{Data: data, FileName: name, MimeType: mimeType}
	} else {
		u.payload = weed.RawPayload{Data: data}
	}
	return u, nil
}

// withProgress attaches a progress bar to large uploads. The returned func
// stops it.
func (a *App) withProgress(u *upload) func() {
	if len(u.data) <= progressThreshold {
		return func() {}
	}
	progress := NewTransferProgress(a.errOut, int64(len(u.data)), "Uploading")
	u.opts.OnProgress = progress.Update
	progress.Start()
	return progress.Finish
}

func newPutCommand(a *App) *cobra.Command {
	var placement assignFlags
	var content uploadFlags
	cmd := &cobra.Command{
		Use:   "put <file>",
		Short: "Store a local file and print its file id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := placement.options(a)
			if err != nil {
				return err
			}
			u, err := content.prepare(args[0], opts.TTL)
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()

			stop := a.withProgress(u)
			stored, err := a.client.Put(ctx, u.payload, opts, u.opts)
			stop()
			if err != nil {
				return err
			}
			if err := stored.Upload.Verify(u.data); err != nil {
				return err
			}
			return a.recordUpload(ctx, stored.FileID, stored.Location.URL, opts.Collection, u, stored.Upload)
		},
	}
	placement.register(cmd)
	content.register(cmd)
	return cmd
}

func newUploadCommand(a *App) *cobra.Command {
	var content uploadFlags
	var auth string
	cmd := &cobra.Command{
		Use:   "upload <fid> <host:port> <file>",
		Short: "Write a local file to an id assigned earlier",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := weed.ParseFileID(args[0])
			if err != nil {
				return err
			}
			volume, err := a.client.VolumeAt(args[1])
			if err != nil {
				return err
			}
			ttl, err := weed.ParseTTL(content.ttl)
			if err != nil {
				return err
			}
			u, err := content.prepare(args[2], ttl)
			if err != nil {
				return err
			}
			u.opts.Auth = auth

			ctx, cancel := getContext()
			defer cancel()

			stop := a.withProgress(u)
			result, err := volume.Upload(ctx, fid, u.payload, u.opts)
			stop()
			if err != nil {
				return err
			}
			if err := result.Verify(u.data); err != nil {
				return err
			}
			return a.recordUpload(ctx, fid, volume.Address().String(), "", u, result)
		},
	}
	content.register(cmd)
	cmd.Flags().StringVar(&content.ttl, "ttl", "", `time to live such as "3d"`)
	cmd.Flags().StringVar(&auth, "auth", "", "write token issued with the assignment")
	return cmd
}

func (a *App) recordUpload(ctx context.Context, fid weed.FileID, volumeURL, collection string, u *upload, result *weed.UploadResult) error {
	fmt.Fprintf(a.out, "%s\t%s\t%s\n", fid, formatBytes(result.Size), volumeURL)

	j, err := a.uploads()
	if err != nil {
		return err
	}
	return j.Put(ctx, journal.Record{
		FileID:     fid.String(),
		Name:       u.name,
		Size:       result.Size,
		ETag:       result.ETag,
		Mime:       u.opts.MimeType,
		VolumeURL:  volumeURL,
		Collection: collection,
		UploadedAt: time.Now().UTC(),
	})
}

func newGetCommand(a *App) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "get <fid>",
		Short: "Read a file to stdout or a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := weed.ParseFileID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()

			if output == "" {
				_, err := a.client.GetTo(ctx, fid, a.out, nil)
				return err
			}

			var progress *TransferProgress
			if size := a.knownSize(ctx, fid); size > progressThreshold {
				progress = NewTransferProgress(a.errOut, size, "Downloading")
				progress.Start()
			}
			n, err := writeOutput(output, func(w io.Writer) (int64, error) {
				if progress != nil {
					w = &ProgressWriter{w: w, progress: progress}
				}
				return a.client.GetTo(ctx, fid, w, nil)
			})
			if progress != nil {
				progress.Finish()
			}
			if err != nil {
				return err
			}
			if progress == nil {
				fmt.Fprintf(a.out, "Wrote %d bytes to %s\n", n, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

// writeOutput runs fill against a temporary file beside path and moves it
// over path only when fill succeeds.
func writeOutput(path string, fill func(io.Writer) (int64, error)) (n int64, err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, errors.Wrap(err, "failed to create output file")
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if n, err = fill(f); err != nil {
		return 0, err
	}
	if err = f.Close(); err != nil {
		return 0, errors.Wrapf(err, "failed to write %s", path)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return 0, errors.Wrapf(err, "failed to replace %s", path)
	}
	return n, nil
}

// knownSize returns the journalled size of fid, or 0.
func (a *App) knownSize(ctx context.Context, fid weed.FileID) int64 {
	j, err := a.uploads()
	if err != nil {
		return 0
	}
	rec, err := j.Get(ctx, fid.String())
	if err != nil {
		return 0
	}
	return rec.Size
}

func newRmCommand(a *App) *cobra.Command {
	var auth string
	cmd := &cobra.Command{
		Use:   "rm <fid>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fid, err := weed.ParseFileID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()

			result, err := a.client.Remove(ctx, fid, &weed.DeleteOptions{Auth: auth})
			if err != nil {
				return err
			}

			j, err := a.uploads()
			if err != nil {
				return err
			}
			if err := j.Delete(ctx, fid.String()); err != nil && !errors.Is(err, journal.ErrNotFound) {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %s (%s)\n", fid, formatBytes(result.Size))
			return nil
		},
	}
	cmd.Flags().StringVar(&auth, "auth", "", "write token for the file")
	return cmd
}

func newLookupCommand(a *App) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "lookup <volumeId|fid>",
		Short: "Show the volume servers holding a volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			volumeID, err := parseVolumeArg(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()

			locations, err := a.client.Lookup(ctx, volumeID, &weed.LookupOptions{Collection: collection})
			if err != nil {
				return err
			}
			renderLocations(a.out, locations)
			return nil
		},
	}
	cmd.Flags().StringVarP(&collection, "collection", "c", "", "collection of the volume")
	return cmd
}

func newHistoryCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the files stored from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := a.uploads()
			if err != nil {
				return err
			}
			ctx, cancel := getContext()
			defer cancel()

			records, err := j.All(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(a.out, "No files found")
				return nil
			}
			renderHistory(a.out, records)
			return nil
		},
	}
}

func newShellCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runShell()
		},
	}
}

func newVersionCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.out, buildinfo.String())
		},
	}
}
