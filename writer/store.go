package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"finflow/logger"
	"finflow/models"
	"finflow/processor"
)

// PersistError wraps a failed local read or write of a dataset file.
type PersistError struct {
	Path string
	Op   string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store reads and writes instrument dataset files and optionally mirrors
// finished files to S3.
type Store struct {
	lineTerm string
	mirror   *Mirror
	log      *logger.Log
}

// NewStore creates a Store. A nil mirror disables S3 uploads.
func NewStore(lineTerm string, mirror *Mirror) *Store {
	return &Store{
		lineTerm: lineTerm,
		mirror:   mirror,
		log:      logger.GetLogger(),
	}
}

// Load reads the dataset at the target path. A missing file is not an
// error; it returns a nil dataset so callers can treat it as empty.
func (s *Store) Load(target Target) (*models.Dataset, error) {
	data, err := os.ReadFile(target.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &PersistError{Path: target.Path, Op: "read", Err: err}
	}

	if !target.Format.IsBinary() {
		return nil, &PersistError{Path: target.Path, Op: "read", Err: fmt.Errorf("csv datasets cannot be reloaded")}
	}

	if target.Compression == CompressionXZ {
		if data, err = unxzBytes(data); err != nil {
			return nil, &PersistError{Path: target.Path, Op: "decompress", Err: err}
		}
	}

	dataset, err := decodeBinary(data)
	if err != nil {
		return nil, &PersistError{Path: target.Path, Op: "decode", Err: err}
	}
	return dataset, nil
}

// Persist writes the downloaded dataset to the target. With append enabled
// on a binary target the fresh rows are merged into the local dataset first.
// It returns the net number of rows added to what was stored locally.
func (s *Store) Persist(ctx context.Context, target Target, fresh, local *models.Dataset, appendMode bool) (int, error) {
	log := s.log.WithComponent("store").WithFields(logger.Fields{"path": target.Path})

	output := fresh
	added := fresh.RowCount()
	if appendMode && target.Format.IsBinary() {
		merged, net, err := processor.Merge(local, fresh)
		if err != nil {
			return 0, &PersistError{Path: target.Path, Op: "merge", Err: err}
		}
		output = merged
		added = net
	}

	var data []byte
	var err error
	switch {
	case target.Format.IsCSVFamily():
		data, err = encodeCSV(output, s.lineTerm)
		if err == nil && target.Compression == CompressionGzip {
			data, err = gzipBytes(data)
		}
	default:
		data, err = encodeBinary(output)
		if err == nil && target.Compression == CompressionXZ {
			data, err = xzBytes(data)
		}
	}
	if err != nil {
		return 0, &PersistError{Path: target.Path, Op: "encode", Err: err}
	}

	if err := writeAtomic(target.Path, data); err != nil {
		return 0, err
	}

	logger.IncrementFileWrite(output.RowCount(), int64(len(data)))
	logger.LogDataFlowEntry(log, "dataset", target.Path, output.RowCount(), target.Format.String())
	log.WithFields(logger.Fields{"rows": output.RowCount(), "bytes": len(data)}).Info("dataset saved")

	if s.mirror != nil {
		if err := s.mirror.Upload(ctx, target.Path, data); err != nil {
			log.WithError(err).Warn("s3 mirror upload failed")
		}
	}

	return added, nil
}

// writeAtomic writes data to a sibling temp file and renames it into place,
// so an interrupted write never truncates an existing good file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &PersistError{Path: path, Op: "write", Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Path: path, Op: "write", Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Path: path, Op: "write", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return &PersistError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
