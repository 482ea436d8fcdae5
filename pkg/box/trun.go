package box

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
)

// aligned(8) class TrackRunBox extends FullBox(‘trun’, version, tr_flags) {
//      unsigned int(32) sample_count;
//      // the following are optional fields
//      signed int(32) data_offset;
//       unsigned int(32) first_sample_flags;
//      // all fields in the following array are optional
//      {
//          unsigned int(32) sample_duration;
//          unsigned int(32) sample_size;
//          unsigned int(32) sample_flags
//          if (version == 0)
//          {
//              unsigned int(32) sample_composition_time_offset;
//          }
//          else
//          {
//              signed int(32) sample_composition_time_offset;
//          }
//      }[ sample_count ]
// }

const (
	TR_FLAG_DATA_OFFSET                  uint32 = 0x000001
	TR_FLAG_DATA_FIRST_SAMPLE_FLAGS      uint32 = 0x000004
	TR_FLAG_DATA_SAMPLE_DURATION         uint32 = 0x000100
	TR_FLAG_DATA_SAMPLE_SIZE             uint32 = 0x000200
	TR_FLAG_DATA_SAMPLE_FLAGS            uint32 = 0x000400
	TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME uint32 = 0x000800
)

const trunSampleFields = TR_FLAG_DATA_SAMPLE_DURATION | TR_FLAG_DATA_SAMPLE_SIZE |
	TR_FLAG_DATA_SAMPLE_FLAGS | TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME

type TrunEntry struct {
	SampleDuration              uint32
	SampleSize                  uint32
	SampleFlags                 uint32
	SampleCompositionTimeOffset uint32 // signed when Version is 1
}

type TrackRunBox struct {
	FullBox
	Dataoffset       int32
	FirstSampleFlags uint32
	EntryList        []TrunEntry
}

func NewTrackRunBox() *TrackRunBox {
	return &TrackRunBox{
		FullBox: NewFullBox(TypeTRUN, 0),
	}
}

func (trun *TrackRunBox) SampleCount() uint32 {
	return uint32(len(trun.EntryList))
}

func (trun *TrackRunBox) entrySize() uint64 {
	return 4 * uint64(bits.OnesCount32(trun.FlagsUint32()&trunSampleFields))
}

func (trun *TrackRunBox) ContentSize() uint64 {
	trunFlags := trun.FlagsUint32()
	n := uint64(4 + 4)
	if trunFlags&TR_FLAG_DATA_OFFSET > 0 {
		n += 4
	}
	if trunFlags&TR_FLAG_DATA_FIRST_SAMPLE_FLAGS > 0 {
		n += 4
	}
	return n + trun.entrySize()*uint64(len(trun.EntryList))
}

func (trun *TrackRunBox) Decode(r io.Reader, size uint64) (err error) {
	if err = trun.ReadVersionFlags(r); err != nil {
		return
	}
	trunFlags := trun.FlagsUint32()
	head := make([]byte, 4, 12)
	if trunFlags&TR_FLAG_DATA_OFFSET > 0 {
		head = head[:len(head)+4]
	}
	if trunFlags&TR_FLAG_DATA_FIRST_SAMPLE_FLAGS > 0 {
		head = head[:len(head)+4]
	}
	if _, err = io.ReadFull(r, head); err != nil {
		return eofAsTruncated(err)
	}
	sampleCount := uint64(binary.BigEndian.Uint32(head))
	n := 4
	if trunFlags&TR_FLAG_DATA_OFFSET > 0 {
		trun.Dataoffset = int32(binary.BigEndian.Uint32(head[n:]))
		n += 4
	}
	if trunFlags&TR_FLAG_DATA_FIRST_SAMPLE_FLAGS > 0 {
		trun.FirstSampleFlags = binary.BigEndian.Uint32(head[n:])
	}
	if size < 4+uint64(len(head)) {
		return fmt.Errorf("%w: trun content is %d bytes", ErrTruncatedBox, size)
	}
	remain := size - 4 - uint64(len(head))
	if sampleCount*trun.entrySize() > remain {
		return fmt.Errorf("%w: trun declares %d samples, %d bytes left", ErrTruncatedBox, sampleCount, remain)
	}
	buf := make([]byte, sampleCount*trun.entrySize())
	if _, err = io.ReadFull(r, buf); err != nil {
		return eofAsTruncated(err)
	}
	n = 0
	trun.EntryList = make([]TrunEntry, sampleCount)
	for i := range trun.EntryList {
		entry := &trun.EntryList[i]
		if trunFlags&TR_FLAG_DATA_SAMPLE_DURATION > 0 {
			entry.SampleDuration = binary.BigEndian.Uint32(buf[n:])
			n += 4
		}
		if trunFlags&TR_FLAG_DATA_SAMPLE_SIZE > 0 {
			entry.SampleSize = binary.BigEndian.Uint32(buf[n:])
			n += 4
		}
		if trunFlags&TR_FLAG_DATA_SAMPLE_FLAGS > 0 {
			entry.SampleFlags = binary.BigEndian.Uint32(buf[n:])
			n += 4
		}
		if trunFlags&TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME > 0 {
			entry.SampleCompositionTimeOffset = binary.BigEndian.Uint32(buf[n:])
			n += 4
		}
	}
	return
}

func (trun *TrackRunBox) Encode(w io.Writer) (err error) {
	if err = trun.WriteVersionFlags(w); err != nil {
		return
	}
	trunFlags := trun.FlagsUint32()
	buf := make([]byte, trun.ContentSize()-4)
	binary.BigEndian.PutUint32(buf, trun.SampleCount())
	offset := 4
	if trunFlags&TR_FLAG_DATA_OFFSET > 0 {
		binary.BigEndian.PutUint32(buf[offset:], uint32(trun.Dataoffset))
		offset += 4
	}
	if trunFlags&TR_FLAG_DATA_FIRST_SAMPLE_FLAGS > 0 {
		binary.BigEndian.PutUint32(buf[offset:], trun.FirstSampleFlags)
		offset += 4
	}
	for _, entry := range trun.EntryList {
		if trunFlags&TR_FLAG_DATA_SAMPLE_DURATION != 0 {
			binary.BigEndian.PutUint32(buf[offset:], entry.SampleDuration)
			offset += 4
		}
		if trunFlags&TR_FLAG_DATA_SAMPLE_SIZE != 0 {
			binary.BigEndian.PutUint32(buf[offset:], entry.SampleSize)
			offset += 4
		}
		if trunFlags&TR_FLAG_DATA_SAMPLE_FLAGS != 0 {
			binary.BigEndian.PutUint32(buf[offset:], entry.SampleFlags)
			offset += 4
		}
		if trunFlags&TR_FLAG_DATA_SAMPLE_COMPOSITION_TIME != 0 {
			binary.BigEndian.PutUint32(buf[offset:], entry.SampleCompositionTimeOffset)
			offset += 4
		}
	}
	_, err = w.Write(buf)
	return
}
