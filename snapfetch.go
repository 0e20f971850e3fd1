// Package snapfetch downloads storage-engine checkpoints from the leader of
// a replicated metadata service so that a replica too far behind to catch up
// by log replay can install a full snapshot instead. A fetch is one
// synchronous attempt: resolve the leader's endpoint, stream the checkpoint
// archive to a temp file, validate the log position it claims to represent,
// unpack it into a fresh staging directory and hand the result back as a
// CheckpointDescriptor. Any failure aborts the attempt in full; partial local
// artifacts are cleaned up best-effort and never presented as usable state.
package snapfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckpointDescriptor describes a fully materialized checkpoint: the local
// directory holding the extracted tree and the log position it was taken at.
// It is only ever constructed with both positions present and non-negative.
// Ownership of Dir passes to the caller on return.
type CheckpointDescriptor struct {
	Dir      string
	LogIndex int64
	LogTerm  int64
}

func (d *CheckpointDescriptor) String() string {
	return fmt.Sprintf("CheckpointDescriptor{Dir: %s, LogIndex: %d, LogTerm: %d}", d.Dir, d.LogIndex, d.LogTerm)
}

// Fetcher orchestrates checkpoint fetch attempts. It starts no background
// work and holds no locks; concurrent fetches are safe as long as the caller
// keeps at most one install-in-progress per target state machine.
type Fetcher struct {
	registry    *Registry
	client      *TransferClient
	stagingRoot string
	policy      Policy
	logger      *zap.SugaredLogger
}

func NewFetcher(config Config, registry *Registry) (*Fetcher, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	return &Fetcher{
		registry:    registry,
		client:      NewTransferClient(config),
		stagingRoot: config.StagingRoot,
		policy:      config.Policy,
		logger:      config.LoggerOrNoop().Sugar().With("component", "snapfetch"),
	}, nil
}

// Fetch downloads the leader's latest checkpoint and materializes it under
// the staging root. The request timeout bounds the whole exchange; there is
// no internal retry, the caller decides whether and when to try again.
func (f *Fetcher) Fetch(ctx context.Context, leaderId string, identity Identity) (*CheckpointDescriptor, error) {
	node, err := f.registry.Resolve(leaderId)
	if err != nil {
		return nil, err
	}

	endpoint := node.CheckpointURL(f.policy)
	f.logger.Infow("Downloading latest checkpoint from leader", "peer", leaderId, "endpoint", endpoint)

	res, err := f.client.Fetch(ctx, endpoint, identity)
	if err != nil {
		var te *TransferError
		if errors.As(err, &te) {
			te.PeerId = leaderId
		}
		return nil, err
	}
	defer res.Body.Close()

	// Validate metadata before any bytes are committed to disk.
	index, term, err := res.LogPosition()
	if err != nil {
		return nil, err
	}

	name := stagingName()
	archivePath := filepath.Join(f.stagingRoot, name+".tar.gz")
	size, err := f.download(res.Body, endpoint, archivePath)
	if err != nil {
		var te *TransferError
		if errors.As(err, &te) {
			te.PeerId = leaderId
		}
		return nil, err
	}

	stagingDir := filepath.Join(f.stagingRoot, name)
	if err := extractArchive(archivePath, stagingDir); err != nil {
		// The staging directory is abandoned, never reused.
		f.discard(archivePath)
		return nil, err
	}
	f.discard(archivePath)

	f.logger.Infow("Downloaded checkpoint from leader",
		"peer", leaderId,
		"logIndex", index,
		"logTerm", term,
		"size", humanize.IBytes(uint64(size)),
		"dir", stagingDir)

	return &CheckpointDescriptor{Dir: stagingDir, LogIndex: index, LogTerm: term}, nil
}

// download streams body into a temp archive at path, returning the byte
// count. On any failure the partial file is removed before the error
// propagates.
func (f *Fetcher) download(body io.Reader, endpoint, path string) (int64, error) {
	if err := os.MkdirAll(f.stagingRoot, 0o755); err != nil {
		return 0, &FilesystemError{Path: f.stagingRoot, Op: "create", Cause: err}
	}

	w, err := os.Create(path)
	if err != nil {
		return 0, &FilesystemError{Path: path, Op: "create", Cause: err}
	}

	n, err := io.Copy(w, body)
	if err != nil {
		w.Close()
		f.discard(path)
		var perr *fs.PathError
		if errors.As(err, &perr) {
			return 0, &FilesystemError{Path: path, Op: "write", Cause: err}
		}
		return 0, &TransferError{Endpoint: endpoint, Cause: err}
	}

	if err := w.Close(); err != nil {
		f.discard(path)
		return 0, &FilesystemError{Path: path, Op: "close", Cause: err}
	}
	return n, nil
}

// discard removes a temp artifact best-effort. A removal failure is logged,
// never escalated, so it cannot mask the error that triggered the cleanup.
func (f *Fetcher) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warnw("Error removing temp archive", "path", path, "error", err)
	}
}

// stagingName derives a per-attempt name from the attempt time plus a random
// suffix, so two attempts within the same clock tick cannot collide.
func stagingName() string {
	return fmt.Sprintf("checkpoint_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
