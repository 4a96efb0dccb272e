package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStretchFilter(t *testing.T) {
	t.Run("tempo with pivot inverts the duration factor", func(t *testing.T) {
		got := StretchFilter(1.25, true, true)
		assert.Equal(t, "aformat=sample_fmts=fltp:sample_rates=48000:channel_layouts=mono,atempo=0.80000000", got)
	})

	t.Run("tempo correction without pivot", func(t *testing.T) {
		assert.Equal(t, "atempo=0.50000000", StretchFilter(2, true, false))
	})

	t.Run("resample variant", func(t *testing.T) {
		got := StretchFilter(1.2, false, false)
		assert.Equal(t, "asetrate=40000.000000,aresample=48000", got)
	})
}

func TestLoudnormFilters(t *testing.T) {
	assert.Equal(t, "loudnorm=I=-23:LRA=7:TP=-1:print_format=json", LoudnormAnalysisFilter(BroadcastLoudness))

	stats := LoudnessStats{
		InputI:       "-27.61",
		InputTP:      "-4.47",
		InputLRA:     "18.06",
		InputThresh:  "-39.20",
		TargetOffset: "0.58",
	}
	assert.True(t, stats.Complete())

	got := LoudnormApplyFilter(BroadcastLoudness, stats, 5000)
	assert.Equal(t,
		"loudnorm=I=-23:LRA=7:TP=-1:measured_I=-27.61:measured_LRA=18.06:measured_TP=-4.47:measured_thresh=-39.20:offset=0.58:linear=true:print_format=summary"+
			",afade=t=in:st=0:d=0.01,afade=t=out:st=4.990000:d=0.01",
		got)
}

func TestLoudnormApplyFilter_ShortAudioClampsFade(t *testing.T) {
	got := LoudnormApplyFilter(BroadcastLoudness, LoudnessStats{}, 5)
	assert.Contains(t, got, "afade=t=out:st=0.000000:d=0.01")
}

func TestLoudnessStats_Incomplete(t *testing.T) {
	assert.False(t, LoudnessStats{InputI: "-20"}.Complete())
}

func TestAdjustFilter(t *testing.T) {
	assert.Equal(t, "", AdjustFilter(PlanAdjustment(1000, 1001)))
	assert.Equal(t, "atrim=0:1.000000,asetpts=N/SR/TB", AdjustFilter(PlanAdjustment(1000, 1050)))
	assert.Equal(t, "apad=pad_dur=0.050000,atrim=0:1.000000,asetpts=N/SR/TB", AdjustFilter(PlanAdjustment(1000, 950)))
}
