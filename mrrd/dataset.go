package mrrd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/robert-malhotra/go-mrrd/hdf5"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Well-known members of a dataset group.
const (
	streamGroup = "data"
	headerName  = "xml"
)

// Dataset is an open MR raw dataset.
type Dataset struct {
	file   *hdf5.File
	group  *hdf5.Group
	opts   options
	log    *zap.SugaredLogger
	closed bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	log         *zap.SugaredLogger
	compression int
	readOnly    bool
}

// WithLogger sets the logger for debug output. The default discards
// everything.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithCompression deflates new array stacks and acquisition tables at the
// given level (1-9, 0 = off).
func WithCompression(level int) Option {
	return func(o *options) {
		if level >= 0 && level <= 9 {
			o.compression = level
		}
	}
}

// ReadOnly opens an existing dataset without write access.
func ReadOnly() Option {
	return func(o *options) {
		o.readOnly = true
	}
}

// Open opens the dataset group called group in the file at path. For
// writing, a missing file or group is created; an existing file is
// reopened and its stacks and stream continue.
func Open(path, group string, opts ...Option) (*Dataset, error) {
	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := openFile(path, o.readOnly)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}

	var g *hdf5.Group
	if o.readOnly {
		g, err = f.OpenGroup(group)
	} else {
		g, err = f.Root().RequireGroup(group)
	}
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: group %q in %s: %w", ErrOpenFailed, group, path, err)
	}

	d := &Dataset{
		file:  f,
		group: g,
		opts:  o,
		log:   o.log.With("file", path, "group", g.Path()),
	}
	d.log.Debugw("opened dataset", "writable", f.IsWritable())
	return d, nil
}

func openFile(path string, readOnly bool) (*hdf5.File, error) {
	if readOnly {
		return hdf5.Open(path)
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return hdf5.OpenReadWrite(path)
	case errors.Is(err, fs.ErrNotExist):
		return hdf5.Create(path)
	}
	return nil, err
}

// Close flushes and releases the file. Calling Close again is a no-op.
func (d *Dataset) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if d.file.IsWritable() {
		if ferr := d.file.Flush(); ferr != nil {
			err = multierr.Append(err, writeFailed("flushing", ferr))
		}
	}
	err = multierr.Append(err, d.file.Close())
	d.log.Debugw("closed dataset", "error", err)
	return err
}

// Path returns the path of the dataset group inside the file.
func (d *Dataset) Path() string {
	return d.group.Path()
}

// File returns the underlying file.
func (d *Dataset) File() *hdf5.File {
	return d.file
}

func (d *Dataset) check() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

func (d *Dataset) checkWrite() error {
	if err := d.check(); err != nil {
		return err
	}
	if !d.file.IsWritable() {
		return fmt.Errorf("%w: %s is open read-only", ErrWriteFailed, d.file.Path())
	}
	return nil
}

func (d *Dataset) createOptions() []hdf5.DatasetOption {
	if d.opts.compression > 0 {
		return []hdf5.DatasetOption{hdf5.WithShuffle(), hdf5.WithCompression(d.opts.compression)}
	}
	return nil
}
