// Package n5 reads chunked arrays stored in the N5 layout.
//
// An N5 container is a directory tree. Every array directory holds an
// attributes.json document describing the array, and one file per block at
// the path "{i}/{j}/{k}", where the block indices are listed fastest axis
// first. N5 lists dimensions the same way (x, y, z), so this package
// reverses them: shapes and block coordinates are always C-ordered
// (z, y, x) at the API boundary.
//
// A block file starts with a big-endian header:
//
//	uint16 mode            0 = default, 1 = varlength
//	uint16 ndim
//	uint32 × ndim          block extent, fastest axis first
//	uint32 numElements     only when mode is 1
//
// followed by the element data, big-endian, compressed with the codec named
// in attributes.json. Blocks at the upper edge of the array may be smaller
// than blockSize. Blocks that do not exist read as zeros.
//
// Codecs are looked up in a registry; raw, gzip (and its zlib variant) and
// zstd are built in. Element values are exposed as float64 regardless of the
// stored data type.
package n5
