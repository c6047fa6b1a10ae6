// Package geom defines the source geometry model consumed by the viewer.
// A geometry is a DAG of volumes: every volume owns a list of placed
// daughter nodes, and the same volume may be placed any number of times.
package geom
