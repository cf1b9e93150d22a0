// Command mrrd-inspect prints the layout of an MR raw dataset file: the
// object tree, the array stacks, the acquisition stream and a summary of
// the XML header.
//
//	mrrd-inspect <file.h5> [group]
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/robert-malhotra/go-mrrd/hdf5"
	"github.com/robert-malhotra/go-mrrd/ismrmrdxml"
	"github.com/robert-malhotra/go-mrrd/mrrd"
)

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, "Usage: mrrd-inspect <file.h5> [group]")
		os.Exit(2)
	}
	group := "dataset"
	if len(os.Args) == 3 {
		group = os.Args[2]
	}
	if err := inspect(os.Stdout, os.Args[1], group); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(w io.Writer, path, group string) error {
	d, err := mrrd.Open(path, group, mrrd.ReadOnly())
	if err != nil {
		return err
	}
	defer d.Close()

	fmt.Fprintf(w, "=== %s ===\n\n", path)
	fmt.Fprintf(w, "Superblock version: %d\n\n", d.File().Version())

	if err := printTree(w, d.File().Root()); err != nil {
		return err
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Dataset %q:\n", d.Path())
	if err := printArrays(w, d); err != nil {
		return err
	}
	if err := printAcquisitions(w, d); err != nil {
		return err
	}
	return printHeader(w, d)
}

func printTree(w io.Writer, root *hdf5.Group) error {
	return hdf5.Walk(root, func(path string, obj any, err error) error {
		indent := strings.Repeat("  ", depth(path))
		if err != nil {
			fmt.Fprintf(w, "%s%q: ERROR %v\n", indent, path, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Fprintf(w, "%sGroup %q: %d members\n", indent, path, len(o.Members()))
		case *hdf5.Dataset:
			fmt.Fprintf(w, "%sDataset %q: shape %v, %v\n", indent, path, o.Shape(), o.Datatype())
		}
		return nil
	})
}

func depth(path string) int {
	if path == "/" {
		return 0
	}
	return strings.Count(path, "/")
}

func printArrays(w io.Writer, d *mrrd.Dataset) error {
	names, err := d.ArrayNames()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Arrays: %d\n", len(names))
	for _, name := range names {
		info, err := d.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "    %s: depth %d, dims %v, %v\n", name, info.Depth, info.Dims, info.Type)
	}
	return nil
}

func printAcquisitions(w io.Writer, d *mrrd.Dataset) error {
	n, err := d.NumAcquisitions()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  Acquisitions: %d\n", n)
	if n == 0 {
		return nil
	}
	for _, i := range []uint64{0, n - 1} {
		acq, err := d.ReadAcquisition(i)
		if err != nil {
			return err
		}
		h := acq.Head
		fmt.Fprintf(w, "    [%d] samples %d, channels %d/%d, line %d, flags %v\n",
			i, h.NumberOfSamples, h.ActiveChannels, h.AvailableChannels, h.Idx.KSpaceEncodeStep1, h.SetFlags())
		if n == 1 {
			break
		}
	}
	return nil
}

func printHeader(w io.Writer, d *mrrd.Dataset) error {
	text, err := d.ReadHeader()
	if errors.Is(err, mrrd.ErrNotFound) {
		fmt.Fprintln(w, "  Header: none")
		return nil
	}
	if err != nil {
		return err
	}
	h, err := ismrmrdxml.Deserialize(text)
	if err != nil {
		fmt.Fprintf(w, "  Header: %d bytes, does not parse: %v\n", len(text), err)
		return nil
	}
	fmt.Fprintf(w, "  Header: %d Hz, %d encoding(s)\n", h.ExperimentalConditions.H1ResonanceFrequencyHz, len(h.Encoding))
	for i, e := range h.Encoding {
		m := e.EncodedSpace.MatrixSize
		r := e.ReconSpace.MatrixSize
		fmt.Fprintf(w, "    [%d] encoded %dx%dx%d, recon %dx%dx%d, %s\n", i, m.X, m.Y, m.Z, r.X, r.Y, r.Z, e.Trajectory)
	}
	return nil
}
