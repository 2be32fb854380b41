package writers

import (
	"fmt"
	"path"

	"gonum.org/v1/hdf5"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// nativeHDF5 writes through the HDF5 C library.
type nativeHDF5 struct {
	file   *hdf5.File
	groups map[string]*hdf5.Group
}

// CreateHDF5File truncates or creates filename.
func CreateHDF5File(filename string) (HDF5File, error) {
	f, err := hdf5.CreateFile(filename, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, err
	}
	return &nativeHDF5{file: f, groups: map[string]*hdf5.Group{}}, nil
}

func (n *nativeHDF5) CreateGroup(name string) error {
	g, err := n.file.CreateGroup(name)
	if err != nil {
		return err
	}
	n.groups[name] = g
	return nil
}

func (n *nativeHDF5) WriteDataset(p string, a *api.Array) error {
	if err := a.Validate(); err != nil {
		return err
	}
	dims := make([]uint, len(a.Shape))
	for i, d := range a.Shape {
		dims[i] = uint(d)
	}
	space, err := hdf5.CreateSimpleDataspace(dims, nil)
	if err != nil {
		return err
	}
	defer space.Close()

	dtype := hdf5.T_NATIVE_DOUBLE
	if a.IsInteger() {
		dtype = hdf5.T_NATIVE_INT64
	}
	dir, name := path.Split(p)
	var dset *hdf5.Dataset
	if g, ok := n.groups[path.Clean(dir)]; ok && dir != "" {
		dset, err = g.CreateDataset(name, dtype, space)
	} else {
		dset, err = n.file.CreateDataset(p, dtype, space)
	}
	if err != nil {
		return err
	}
	defer dset.Close()

	if a.IsInteger() {
		ints := make([]int64, len(a.Values))
		for i, v := range a.Values {
			ints[i] = int64(v)
		}
		return dset.Write(&ints)
	}
	values := a.Values
	return dset.Write(&values)
}

func (n *nativeHDF5) SetAttribute(name string, value any) error {
	root, err := n.file.OpenGroup("/")
	if err != nil {
		return err
	}
	defer root.Close()
	space, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer space.Close()

	var (
		dtype *hdf5.Datatype
		data  any
	)
	switch v := value.(type) {
	case float64:
		dtype, data = hdf5.T_NATIVE_DOUBLE, &v
	case int64:
		dtype, data = hdf5.T_NATIVE_INT64, &v
	case int:
		i := int64(v)
		dtype, data = hdf5.T_NATIVE_INT64, &i
	default:
		s := header.FormatValue(value)
		dtype, data = hdf5.T_GO_STRING, &s
	}
	attr, err := root.CreateAttribute(name, dtype, space)
	if err != nil {
		return fmt.Errorf("create attribute: %w", err)
	}
	defer attr.Close()
	return attr.Write(data, dtype)
}

func (n *nativeHDF5) Close() error {
	for _, g := range n.groups {
		g.Close()
	}
	return n.file.Close()
}
