/*
	Package dvid provides types, constants, and functions that have no other dependencies
	and can be used by all packages within cclabels.  This includes N-dimensional points,
	regions and the block partitioning of a volume, dense label volumes, logging, store
	configuration, and the serialization/compression of stored values.  Since these
	elements are used at every layer (arrays, scratch storage, the blockwise executor and
	the stitching phases), we keep them here to avoid cyclic package dependencies.
*/
package dvid
