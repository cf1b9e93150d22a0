package mrrd

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/robert-malhotra/go-mrrd/hdf5"
)

// WriteHeader stores the XML experiment header of the dataset. A header
// written earlier is replaced. xml must be valid UTF-8.
func (d *Dataset) WriteHeader(xml string) error {
	if err := d.checkWrite(); err != nil {
		return err
	}
	if !utf8.ValidString(xml) {
		return fmt.Errorf("%w: header is not valid UTF-8", ErrSchemaMismatch)
	}
	replacing := d.group.HasMember(headerName)
	if _, err := d.group.WriteString(headerName, xml); err != nil {
		return writeFailed("writing header", err)
	}
	d.log.Debugw("wrote header", "bytes", len(xml), "replaced", replacing)
	return nil
}

// ReadHeader returns the XML experiment header.
func (d *Dataset) ReadHeader() (string, error) {
	if err := d.check(); err != nil {
		return "", err
	}
	if !d.group.HasMember(headerName) {
		return "", fmt.Errorf("%w: no header in %s", ErrNotFound, d.Path())
	}
	ds, err := d.group.OpenDataset(headerName)
	if errors.Is(err, hdf5.ErrNotDataset) {
		return "", fmt.Errorf("%w: %s/%s is not a header", ErrSchemaMismatch, d.Path(), headerName)
	}
	if err != nil {
		return "", err
	}
	s, err := ds.ReadString()
	if err != nil {
		return "", fmt.Errorf("%w: reading header: %w", ErrSchemaMismatch, err)
	}
	return s, nil
}
