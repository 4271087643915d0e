package scratch

// NOTE: THIS FILE WAS PRODUCED BY THE
// MSGP CODE GENERATION TOOL (github.com/tinylib/msgp)
// DO NOT EDIT

import (
	"github.com/tinylib/msgp/msgp"

	"github.com/janelia-flyem/cclabels/labels"
)

// MarshalMsg implements msgp.Marshaler
func (z *Entry) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	// map header, size 2
	// string "nodes"
	o = append(o, 0x82, 0xa5, 0x6e, 0x6f, 0x64, 0x65, 0x73)
	o = msgp.AppendArrayHeader(o, uint32(len(z.Nodes)))
	for za0001 := range z.Nodes {
		o = msgp.AppendUint64(o, z.Nodes[za0001])
	}
	// string "edges"
	o = append(o, 0xa5, 0x65, 0x64, 0x67, 0x65, 0x73)
	o = msgp.AppendArrayHeader(o, uint32(len(z.Edges)))
	for za0002 := range z.Edges {
		o = msgp.AppendArrayHeader(o, 2)
		for za0003 := range z.Edges[za0002] {
			o = msgp.AppendUint64(o, z.Edges[za0002][za0003])
		}
	}
	return
}

// UnmarshalMsg implements msgp.Unmarshaler
func (z *Entry) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	_ = field
	var zb0001 uint32
	zb0001, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		err = msgp.WrapError(err)
		return
	}
	for zb0001 > 0 {
		zb0001--
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			err = msgp.WrapError(err)
			return
		}
		switch msgp.UnsafeString(field) {
		case "nodes":
			var zb0002 uint32
			zb0002, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Nodes")
				return
			}
			if cap(z.Nodes) >= int(zb0002) {
				z.Nodes = (z.Nodes)[:zb0002]
			} else {
				z.Nodes = make([]uint64, zb0002)
			}
			for za0001 := range z.Nodes {
				z.Nodes[za0001], bts, err = msgp.ReadUint64Bytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Nodes", za0001)
					return
				}
			}
		case "edges":
			var zb0003 uint32
			zb0003, bts, err = msgp.ReadArrayHeaderBytes(bts)
			if err != nil {
				err = msgp.WrapError(err, "Edges")
				return
			}
			if cap(z.Edges) >= int(zb0003) {
				z.Edges = (z.Edges)[:zb0003]
			} else {
				z.Edges = make([]labels.Edge, zb0003)
			}
			for za0002 := range z.Edges {
				var zb0004 uint32
				zb0004, bts, err = msgp.ReadArrayHeaderBytes(bts)
				if err != nil {
					err = msgp.WrapError(err, "Edges", za0002)
					return
				}
				if zb0004 != uint32(2) {
					err = msgp.ArrayError{Wanted: uint32(2), Got: zb0004}
					return
				}
				for za0003 := range z.Edges[za0002] {
					z.Edges[za0002][za0003], bts, err = msgp.ReadUint64Bytes(bts)
					if err != nil {
						err = msgp.WrapError(err, "Edges", za0002, za0003)
						return
					}
				}
			}
		default:
			bts, err = msgp.Skip(bts)
			if err != nil {
				err = msgp.WrapError(err)
				return
			}
		}
	}
	o = bts
	return
}

// Msgsize returns an upper bound estimate of the number of bytes occupied by the serialized message
func (z *Entry) Msgsize() (s int) {
	s = 1 + 6 + msgp.ArrayHeaderSize + (len(z.Nodes) * (msgp.Uint64Size)) + 6 + msgp.ArrayHeaderSize + (len(z.Edges) * (msgp.ArrayHeaderSize + (2 * (msgp.Uint64Size))))
	return
}
