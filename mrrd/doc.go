// Package mrrd reads and writes MR raw datasets: a named group in an HDF5
// file holding stacks of N-dimensional arrays, an append-only stream of
// acquisitions and an XML experiment header.
//
// Layout of a dataset group called "dataset":
//
//	/dataset/<name>      array stack, shape (depth, d[k-1], ..., d[0])
//	/dataset/data/head   acquisition headers, one compound row each
//	/dataset/data/data   sample payloads, variable-length float32
//	/dataset/data/traj   trajectories, variable-length float32
//	/dataset/xml         header text, variable-length UTF-8 string
//
// A Dataset owns its file exclusively until Close.
package mrrd
