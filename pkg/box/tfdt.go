package box

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"m7s.live/bmff/pkg/util"
)

// aligned(8) class TrackFragmentBaseMediaDecodeTimeBox extends FullBox(‘tfdt’, version, 0) {
// 	if (version==1) {
// 		  unsigned int(64) baseMediaDecodeTime;
// 	   } else { // version==0
// 		  unsigned int(32) baseMediaDecodeTime;
// 	   }
// 	}

type TrackFragmentBaseMediaDecodeTimeBox struct {
	FullBox
	BaseMediaDecodeTime uint64
}

// NewTrackFragmentBaseMediaDecodeTimeBox picks version 1 only when fragStart needs it.
func NewTrackFragmentBaseMediaDecodeTimeBox(fragStart uint64) *TrackFragmentBaseMediaDecodeTimeBox {
	return &TrackFragmentBaseMediaDecodeTimeBox{
		FullBox:             NewFullBox(TypeTFDT, util.Conditional[uint8](fragStart > math.MaxUint32, 1, 0)),
		BaseMediaDecodeTime: fragStart,
	}
}

func (tfdt *TrackFragmentBaseMediaDecodeTimeBox) ContentSize() uint64 {
	return 4 + util.Conditional[uint64](tfdt.Version == 1, 8, 4)
}

func (tfdt *TrackFragmentBaseMediaDecodeTimeBox) Decode(r io.Reader, size uint64) (err error) {
	if err = tfdt.ReadVersionFlags(r); err != nil {
		return
	}
	buf := make([]byte, tfdt.ContentSize()-4)
	if _, err = io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	tfdt.BaseMediaDecodeTime = util.ReadBE[uint64](buf)
	return
}

func (tfdt *TrackFragmentBaseMediaDecodeTimeBox) Encode(w io.Writer) (err error) {
	if tfdt.Version != 1 && tfdt.BaseMediaDecodeTime > math.MaxUint32 {
		return fmt.Errorf("%w: tfdt version 0 cannot hold %d", ErrFieldOverflow, tfdt.BaseMediaDecodeTime)
	}
	if err = tfdt.WriteVersionFlags(w); err != nil {
		return
	}
	buf := make([]byte, tfdt.ContentSize()-4)
	if tfdt.Version == 1 {
		binary.BigEndian.PutUint64(buf, tfdt.BaseMediaDecodeTime)
	} else {
		binary.BigEndian.PutUint32(buf, uint32(tfdt.BaseMediaDecodeTime))
	}
	_, err = w.Write(buf)
	return
}
