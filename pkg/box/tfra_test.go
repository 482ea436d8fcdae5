package box

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeToBytes(t *testing.T, b Box) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, EncodeBox(&buf, b))
	require.EqualValues(t, Size(b), buf.Len())
	return buf.Bytes()
}

func maxOf(width uint8) uint32 {
	return uint32(uint64(1)<<(8*uint64(width)) - 1)
}

func TestTfraWidthCombinations(t *testing.T) {
	widths := []uint8{1, 2, 4}
	for _, version := range []uint8{0, 1} {
		for _, traf := range widths {
			for _, trun := range widths {
				for _, sample := range widths {
					t.Run(fmt.Sprintf("v%d_%d_%d_%d", version, traf, trun, sample), func(t *testing.T) {
						tfra := NewTrackFragmentRandomAccessBox(1)
						tfra.Version = version
						tfra.LengthSizeOfTrafNum = traf
						tfra.LengthSizeOfTrunNum = trun
						tfra.LengthSizeOfSampleNum = sample
						timeMax := uint64(0xFFFFFFFF)
						if version == 1 {
							timeMax = 0x1_0000_0000_0000
						}
						tfra.Entries = []TfraEntry{
							{Time: 0, MoofOffset: 0, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1},
							{Time: timeMax, MoofOffset: timeMax, TrafNumber: maxOf(traf), TrunNumber: maxOf(trun), SampleNumber: maxOf(sample)},
						}
						data := encodeToBytes(t, tfra)

						file, err := ParseBytes(data)
						require.NoError(t, err)
						require.Len(t, file.Boxes(), 1)
						got, ok := file.Boxes()[0].(*TrackFragmentRandomAccessBox)
						require.True(t, ok)
						assert.Equal(t, version, got.Version)
						assert.Equal(t, traf, got.LengthSizeOfTrafNum)
						assert.Equal(t, trun, got.LengthSizeOfTrunNum)
						assert.Equal(t, sample, got.LengthSizeOfSampleNum)
						assert.Equal(t, tfra.Entries, got.Entries)

						var out bytes.Buffer
						require.NoError(t, Serialize(&out, file))
						assert.Equal(t, data, out.Bytes())
					})
				}
			}
		}
	}
}

func TestTfraSingleEntryScenario(t *testing.T) {
	tfra := NewTrackFragmentRandomAccessBox(7)
	tfra.LengthSizeOfTrafNum = 2
	tfra.LengthSizeOfTrunNum = 1
	tfra.LengthSizeOfSampleNum = 4
	tfra.Entries = []TfraEntry{{Time: 1, MoofOffset: 2, TrafNumber: 3, TrunNumber: 4, SampleNumber: 5}}
	data := encodeToBytes(t, tfra)

	// 12 header + 4 track id + 4 packed widths + 4 count + 8 + 8 + 2 + 1 + 4
	require.Len(t, data, 47)
	assert.Equal(t, []byte{0, 0, 0, 0b0001_0011}, data[16:20])
	assert.Equal(t, []byte{0, 3, 4, 0, 0, 0, 5}, data[40:])

	file, err := ParseBytes(data)
	require.NoError(t, err)
	got := file.Boxes()[0].(*TrackFragmentRandomAccessBox)
	assert.Equal(t, uint32(7), got.TrackID)
	assert.Equal(t, uint32(1), got.NumberOfEntries())
	assert.Equal(t, tfra.Entries[0], got.Entries[0])
}

func TestTfraScenarioAllWidths(t *testing.T) {
	widths := []uint8{1, 2, 4}
	want := TfraEntry{Time: 1, MoofOffset: 2, TrafNumber: 3, TrunNumber: 4, SampleNumber: 5}
	for _, traf := range widths {
		for _, trun := range widths {
			for _, sample := range widths {
				tfra := NewTrackFragmentRandomAccessBox(1)
				tfra.LengthSizeOfTrafNum, tfra.LengthSizeOfTrunNum, tfra.LengthSizeOfSampleNum = traf, trun, sample
				tfra.Entries = []TfraEntry{want}
				data := encodeToBytes(t, tfra)
				require.Len(t, data, 12+12+16+int(traf)+int(trun)+int(sample))

				file, err := ParseBytes(data)
				require.NoError(t, err)
				got := file.Boxes()[0].(*TrackFragmentRandomAccessBox)
				assert.Equal(t, uint32(1), got.NumberOfEntries())
				assert.Equal(t, uint32(1), got.TrackID)
				assert.Equal(t, want, got.Entries[0])
			}
		}
	}
}

func TestTfraThreeByteWidth(t *testing.T) {
	tfra := NewTrackFragmentRandomAccessBox(2)
	tfra.LengthSizeOfSampleNum = 3
	tfra.Entries = []TfraEntry{{Time: 10, MoofOffset: 20, TrafNumber: 1, TrunNumber: 1, SampleNumber: 0xABCDEF}}
	file, err := ParseBytes(encodeToBytes(t, tfra))
	require.NoError(t, err)
	assert.Equal(t, tfra.Entries, file.Boxes()[0].(*TrackFragmentRandomAccessBox).Entries)
}

func TestTfraOverflow(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*TrackFragmentRandomAccessBox)
	}{
		{"traf number", func(b *TrackFragmentRandomAccessBox) { b.Entries[0].TrafNumber = 256 }},
		{"sample number", func(b *TrackFragmentRandomAccessBox) {
			b.LengthSizeOfSampleNum = 2
			b.Entries[0].SampleNumber = 0x10000
		}},
		{"version 0 time", func(b *TrackFragmentRandomAccessBox) {
			b.Version = 0
			b.Entries[0].Time = 1 << 32
		}},
		{"version 0 offset", func(b *TrackFragmentRandomAccessBox) {
			b.Version = 0
			b.Entries[0].MoofOffset = 1 << 32
		}},
		{"width 0", func(b *TrackFragmentRandomAccessBox) { b.LengthSizeOfTrunNum = 0 }},
		{"width 5", func(b *TrackFragmentRandomAccessBox) { b.LengthSizeOfTrafNum = 5 }},
		{"reserved", func(b *TrackFragmentRandomAccessBox) { b.Reserved = 1 << 26 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tfra := NewTrackFragmentRandomAccessBox(1)
			tfra.Entries = []TfraEntry{{Time: 1, MoofOffset: 1, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1}}
			tc.mutate(tfra)
			var buf bytes.Buffer
			err := EncodeBox(&buf, tfra)
			assert.ErrorIs(t, err, ErrFieldOverflow)

			buf.Reset()
			assert.ErrorIs(t, Serialize(&buf, NewFile(tfra)), ErrFieldOverflow)
			assert.Zero(t, buf.Len())
		})
	}
}

func TestTfraEntryCountOverrun(t *testing.T) {
	tfra := NewTrackFragmentRandomAccessBox(1)
	tfra.Entries = []TfraEntry{{Time: 1, MoofOffset: 1, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1}}
	data := encodeToBytes(t, tfra)
	data[23] = 2 // number_of_entry
	_, err := ParseBytes(data)
	assert.ErrorIs(t, err, ErrTruncatedBox)
}

func TestTfraMatchesMp4ff(t *testing.T) {
	for _, version := range []uint8{0, 1} {
		tfra := NewTrackFragmentRandomAccessBox(3)
		tfra.Version = version
		tfra.LengthSizeOfTrafNum = 1
		tfra.LengthSizeOfTrunNum = 2
		tfra.LengthSizeOfSampleNum = 4
		tfra.Entries = []TfraEntry{
			{Time: 0, MoofOffset: 1024, TrafNumber: 1, TrunNumber: 1, SampleNumber: 1},
			{Time: 90000, MoofOffset: 204800, TrafNumber: 1, TrunNumber: 300, SampleNumber: 70000},
		}
		data := encodeToBytes(t, tfra)

		decoded, err := mp4.DecodeBox(0, bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "tfra", decoded.Type())
		require.EqualValues(t, len(data), decoded.Size())
		var again bytes.Buffer
		require.NoError(t, decoded.Encode(&again))
		assert.Equal(t, data, again.Bytes())
	}
}
