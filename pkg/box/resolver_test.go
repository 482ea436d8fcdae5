package box

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"m7s.live/bmff/pkg"
	"m7s.live/bmff/pkg/config"
)

func trunOf(samples int) *TrackRunBox {
	trun := NewTrackRunBox()
	trun.EntryList = make([]TrunEntry, samples)
	return trun
}

func stszOf(samples int) *SampleSizeBox {
	return NewSampleSizeBox(make([]uint32, samples)...)
}

func sampleTable(children ...Box) *ContainerBox {
	stbl := NewContainerBox(TypeSTBL, children...)
	return NewContainerBox(TypeMOOV, NewContainerBox(TypeTRAK, NewContainerBox(TypeMDIA, NewContainerBox(TypeMINF, stbl))))
}

func TestResolveCount(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(sdtp Box) *File
		count uint32
		diags []error
	}{
		{
			name: "single sibling",
			build: func(sdtp Box) *File {
				return NewFile(sampleTable(stszOf(9)), NewContainerBox(TypeMOOF, NewContainerBox(TypeTRAF, trunOf(3), sdtp)))
			},
			count: 3,
		},
		{
			name: "ambiguous siblings fall through to moov",
			build: func(sdtp Box) *File {
				return NewFile(sampleTable(stszOf(5)), NewContainerBox(TypeMOOF, NewContainerBox(TypeTRAF, trunOf(3), trunOf(4), sdtp)))
			},
			count: 5,
			diags: []error{ErrAmbiguousContext},
		},
		{
			name: "ancestor only",
			build: func(sdtp Box) *File {
				return NewFile(sampleTable(stszOf(4)), NewContainerBox(TypeMOOF, NewContainerBox(TypeTRAF, sdtp)))
			},
			count: 4,
		},
		{
			name: "several nested boxes",
			build: func(sdtp Box) *File {
				return NewFile(sampleTable(stszOf(4), stszOf(6)), NewContainerBox(TypeMOOF, NewContainerBox(TypeTRAF, sdtp)))
			},
			diags: []error{ErrAmbiguousContext, ErrMissingContext},
		},
		{
			name: "several ancestors",
			build: func(sdtp Box) *File {
				return NewFile(sampleTable(stszOf(4)), sampleTable(stszOf(4)), NewContainerBox(TypeMOOF, NewContainerBox(TypeTRAF, sdtp)))
			},
			diags: []error{ErrAmbiguousContext, ErrMissingContext},
		},
		{
			name: "nothing",
			build: func(sdtp Box) *File {
				return NewFile(NewContainerBox(TypeMOOF, NewContainerBox(TypeTRAF, sdtp)))
			},
			diags: []error{ErrMissingContext},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sdtp := NewSampleDependencyTypeBox(SampleCountRule)
			tc.build(sdtp)
			count, diags, err := (&Resolver{}).ResolveCount(sdtp, SampleCountRule)
			require.NoError(t, err)
			assert.Equal(t, tc.count, count)
			require.Len(t, diags, len(tc.diags))
			for i, want := range tc.diags {
				assert.ErrorIs(t, diags[i], want)
				assert.Equal(t, "moof/traf/sdtp", diags[i].Path)
				assert.Equal(t, TypeSDTP, diags[i].Type)
			}
		})
	}
}

func TestResolveCountAfterRemoval(t *testing.T) {
	sdtp := NewSampleDependencyTypeBox(SampleCountRule)
	trun := trunOf(3)
	stsz := stszOf(7)
	traf := NewContainerBox(TypeTRAF, trun, sdtp)
	moov := sampleTable(stsz)
	NewFile(moov, NewContainerBox(TypeMOOF, traf))

	res := &Resolver{}
	count, diags, _ := res.ResolveCount(sdtp, SampleCountRule)
	assert.Equal(t, uint32(3), count)
	assert.Empty(t, diags)

	traf.Remove(trun)
	count, diags, _ = res.ResolveCount(sdtp, SampleCountRule)
	assert.Equal(t, uint32(7), count)
	assert.Empty(t, diags)

	stsz.Parent().Remove(stsz)
	count, diags, _ = res.ResolveCount(sdtp, SampleCountRule)
	assert.Zero(t, count)
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0], ErrMissingContext)
}

func TestResolveCountDetached(t *testing.T) {
	count, diags, err := (*Resolver)(nil).ResolveCount(NewSampleDependencyTypeBox(SampleCountRule), SampleCountRule)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0], ErrMissingContext)
}

func TestResolveCountStrict(t *testing.T) {
	for _, tc := range []struct {
		name  string
		build func(sdtp Box) *File
	}{
		{"siblings", func(sdtp Box) *File {
			return NewFile(sampleTable(stszOf(5)), NewContainerBox(TypeTRAF, trunOf(1), trunOf(2), sdtp))
		}},
		{"ancestors", func(sdtp Box) *File {
			return NewFile(sampleTable(stszOf(4)), sampleTable(stszOf(4)), NewContainerBox(TypeTRAF, sdtp))
		}},
		{"nested", func(sdtp Box) *File {
			return NewFile(sampleTable(stszOf(4), stszOf(6)), NewContainerBox(TypeTRAF, sdtp))
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			sdtp := NewSampleDependencyTypeBox(SampleCountRule)
			tc.build(sdtp)
			_, diags, err := (&Resolver{Strict: true}).ResolveCount(sdtp, SampleCountRule)
			assert.ErrorIs(t, err, ErrAmbiguousContext)
			assert.Empty(t, diags)
		})
	}

	// missing context is never fatal
	sdtp := NewSampleDependencyTypeBox(SampleCountRule)
	NewFile(NewContainerBox(TypeTRAF, sdtp))
	_, diags, err := (&Resolver{Strict: true}).ResolveCount(sdtp, SampleCountRule)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.ErrorIs(t, diags[0], ErrMissingContext)
}

func TestResolveDuringParse(t *testing.T) {
	var logs bytes.Buffer
	conf := config.Default()
	entries := []SdtpEntry{{DependsOn: 2}, {DependsOn: 1}}
	ambiguous := NewFile(NewContainerBox(TypeTRAF, trunOf(2), trunOf(2), NewSampleDependencyTypeBox(SampleCountRule, entries...)))
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, ambiguous))

	t.Run("lenient", func(t *testing.T) {
		p := NewParser(WithConfig(conf), WithLogger(pkg.NewLogger(&logs, conf.LogLevel)))
		file := roundTrip(t, p, buf.Bytes())
		require.Len(t, file.Diagnostics, 2)
		assert.ErrorIs(t, file.Diagnostics[0], ErrAmbiguousContext)
		assert.ErrorIs(t, file.Diagnostics[1], ErrMissingContext)
		sdtp := FindAll(file, TypeSDTP)[0].(*SampleDependencyTypeBox)
		assert.Zero(t, sdtp.EntryCount())
		assert.Len(t, sdtp.Trailing, 2)
		assert.Contains(t, logs.String(), "ambiguous siblings")
		assert.Contains(t, logs.String(), "traf/sdtp")
	})
	t.Run("strict", func(t *testing.T) {
		strict := conf
		strict.StrictContext = true
		_, err := NewParser(WithConfig(strict)).ParseBytes(buf.Bytes())
		assert.ErrorIs(t, err, ErrAmbiguousContext)
	})
}

func TestSdtpInSampleTable(t *testing.T) {
	entries := []SdtpEntry{{DependsOn: 2}, {DependsOn: 1, IsDependedOn: 1}, {DependsOn: 1}}
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, NewFile(sampleTable(stszOf(3), NewSampleDependencyTypeBox(TableSampleCountRule, entries...)))))

	file := roundTrip(t, NewParser(), buf.Bytes())
	sdtp := FindAll(file, TypeSDTP)[0].(*SampleDependencyTypeBox)
	assert.Equal(t, TableSampleCountRule, sdtp.Rule)
	assert.Equal(t, entries, sdtp.Entries)
	assert.Equal(t, "moov/trak/mdia/minf/stbl/sdtp", Path(sdtp))
	assert.Empty(t, file.Diagnostics)
}

func TestConstantSampleSize(t *testing.T) {
	stsz := NewSampleSizeBox()
	stsz.SampleSize = 512
	stsz.ConstantCount = 6
	assert.Equal(t, uint32(6), stsz.SampleCount())
	file := roundTrip(t, NewParser(), encodeToBytes(t, stsz))
	got := file.Boxes()[0].(*SampleSizeBox)
	assert.Equal(t, uint32(6), got.SampleCount())
	assert.Empty(t, got.EntrySizelist)
}

func TestSampleSizeTableLen(t *testing.T) {
	assert.Equal(t, uint64(1)<<32, stszTableLen(1<<30))
	assert.Equal(t, uint64(0x3_FFFF_FFFC), stszTableLen(0xFFFFFFFF))

	// 2^30 entries claimed in a 20 byte box
	data := boxBytes("stsz", 0, 0, 0, 0, 0, 0, 0, 0, 0x40, 0, 0, 0)
	_, err := ParseBytes(data)
	assert.ErrorIs(t, err, ErrTruncatedBox)
}
