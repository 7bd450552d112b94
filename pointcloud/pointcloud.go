// Package pointcloud defines a point cloud and provides an implementation for one.
//
// Positions are in metres in the frame of the sensor that produced the cloud.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor     bool
	HasValue     bool
	HasIntensity bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
	count                  int
}

// NewMetaData creates a new MetaData with empty bounds.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new data.
func (meta *MetaData) Merge(v r3.Vector, data Data) {
	meta.mergeData(data)

	meta.MinX, meta.MaxX = math.Min(meta.MinX, v.X), math.Max(meta.MaxX, v.X)
	meta.MinY, meta.MaxY = math.Min(meta.MinY, v.Y), math.Max(meta.MaxY, v.Y)
	meta.MinZ, meta.MaxZ = math.Min(meta.MinZ, v.Z), math.Max(meta.MaxZ, v.Z)

	meta.totalX += v.X
	meta.totalY += v.Y
	meta.totalZ += v.Z
	meta.count++
}

func (meta *MetaData) mergeData(data Data) {
	if data != nil {
		if data.HasColor() {
			meta.HasColor = true
		}
		if data.HasValue() {
			meta.HasValue = true
		}
		if data.HasIntensity() {
			meta.HasIntensity = true
		}
	}
}

// Center returns the mean of all points merged so far.
func (meta *MetaData) Center() r3.Vector {
	if meta.count == 0 {
		return r3.Vector{}
	}
	n := float64(meta.count)
	return r3.Vector{X: meta.totalX / n, Y: meta.totalY / n, Z: meta.totalZ / n}
}

// PointCloud is a general purpose container of points. It does not
// dictate whether or not the cloud is sparse or dense.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// Set places the given point in the cloud, replacing the data of an existing point at the
	// same position.
	Set(p r3.Vector, d Data) error

	// At returns the point in the cloud at the given position.
	// The 2nd return is if the point exists, the first is data if any.
	At(x, y, z float64) (Data, bool)

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	// numBatches lets you divide up he work. 0 means don't divide
	// myBatch is used iff numBatches > 0 and is which batch you want
	Iterate(numBatches, myBatch int, fn func(p r3.Vector, d Data) bool)
}

// ApplyTransform returns a new cloud with every point mapped by fn. The data of each point is
// carried over unchanged.
func ApplyTransform(cloud PointCloud, fn func(r3.Vector) r3.Vector) (PointCloud, error) {
	out := NewWithPrealloc(cloud.Size())
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		err = out.Set(fn(p), d)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Filter returns a new cloud with the points for which keep returns true.
func Filter(cloud PointCloud, keep func(p r3.Vector, d Data) bool) (PointCloud, error) {
	out := New()
	var err error
	cloud.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		if keep(p, d) {
			err = out.Set(p, d)
		}
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergePointClouds adds all points of the given clouds to a new cloud. Later clouds win when two
// points share a position.
func MergePointClouds(clouds ...PointCloud) (PointCloud, error) {
	total := 0
	for _, c := range clouds {
		total += c.Size()
	}
	out := NewWithPrealloc(total)
	for _, c := range clouds {
		var err error
		c.Iterate(0, 0, func(p r3.Vector, d Data) bool {
			err = out.Set(p, d)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
