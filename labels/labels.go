/*
	Package labels holds the label algorithms used to stitch blockwise connected
	components: the face-connectivity labeling of a dense block, the global label
	namespace that keeps block-local labels collision free, boundary edges between
	provisional labels, the union-find that resolves them into components, and the
	label mappings applied back onto the volume.

	Label 0 is background everywhere in this package and is never assigned to
	foreground voxels.
*/
package labels
