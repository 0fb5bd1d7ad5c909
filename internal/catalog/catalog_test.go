package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forgemedia/portal/internal/portal"
)

func TestServices_StableOrder(t *testing.T) {
	t.Parallel()

	got := Services()
	require.Len(t, got, 3)
	require.Equal(t, portal.ServiceTranscriptCleanup, got[0].ID)
	require.Equal(t, portal.ServiceCaptionsCleanup, got[1].ID)
	require.Equal(t, portal.ServiceDubbingVoiceover, got[2].ID)
}

func TestLookup_UnknownService(t *testing.T) {
	t.Parallel()

	_, ok := Lookup(portal.ServiceType("mastering"))
	require.False(t, ok)
}

func TestAccepts_NormalizesCaseAndDot(t *testing.T) {
	t.Parallel()

	svc, ok := Lookup(portal.ServiceCaptionsCleanup)
	require.True(t, ok)

	require.True(t, svc.Accepts("srt"))
	require.True(t, svc.Accepts(".srt"))
	require.True(t, svc.Accepts("SRT"))
	require.True(t, svc.Accepts("captions.final.VTT"))
	require.False(t, svc.Accepts("mp4"))
	require.False(t, svc.Accepts(""))
	require.False(t, svc.Accepts("noextension"))
}

func TestNormalizeExtension(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Report.SRT":   "srt",
		".vtt":         "vtt",
		"a.b.c.TXT":    "txt",
		"noextension":  "",
		"":             "",
		"trailingdot.": "",
		"UPPER.Docx":   "docx",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizeExtension(in), "input %q", in)
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	require.Equal(t, "application/x-subrip", ContentType("srt"))
	require.Equal(t, "video/mp4", ContentType(".MP4"))
	require.Equal(t, "application/pdf", ContentType("pdf"))
	require.Equal(t, "application/octet-stream", ContentType("xyz"))
}
