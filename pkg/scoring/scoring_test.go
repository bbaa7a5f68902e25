package scoring

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "palabra"
	}
	return strings.Join(parts, " ")
}

func TestScoreCompleteEvidenceIsApproved(t *testing.T) {
	files := []File{
		{Name: "captura_ventas.png", Category: CategoryImage},
		{Name: "dashboard-semana.jpg", Category: CategoryImage},
		{Name: "foto_local.jpg", Category: CategoryImage},
		{Name: "video_campana.mp4", Category: CategoryVideo},
		{Name: "informe.pdf", Category: CategoryDocument},
	}
	notes := words(88) + " https://example.com/post 42"

	res := Score(files, notes)

	assert.InDelta(t, 0.30, res.Breakdown.Files, 1e-9)
	assert.InDelta(t, 0.25, res.Breakdown.Diversity, 1e-9)
	assert.InDelta(t, 0.25, res.Breakdown.Notes, 1e-9)
	assert.InDelta(t, 0.1333, res.Breakdown.Screenshots, 1e-4)
	assert.Equal(t, 0.933, res.Score)
	assert.Equal(t, VerdictApproved, res.Verdict)
}

func TestScoreThinEvidenceIsRejected(t *testing.T) {
	files := []File{{Name: "informe.pdf", Category: CategoryDocument}}

	res := Score(files, words(10))

	assert.InDelta(t, 0.06, res.Breakdown.Files, 1e-9)
	assert.InDelta(t, 0.05, res.Breakdown.Diversity, 1e-9)
	assert.InDelta(t, 0.01875, res.Breakdown.Notes, 1e-9)
	assert.Zero(t, res.Breakdown.Screenshots)
	assert.Equal(t, 0.129, res.Score)
	assert.Equal(t, VerdictRejected, res.Verdict)
}

func TestScoreEmptyEvidence(t *testing.T) {
	res := Score(nil, "")
	assert.Zero(t, res.Score)
	assert.Equal(t, VerdictRejected, res.Verdict)
}

func TestScoreCapsAtOne(t *testing.T) {
	files := make([]File, 0, 12)
	for i := 0; i < 4; i++ {
		files = append(files,
			File{Name: fmt.Sprintf("screenshot_%d.png", i), Category: CategoryImage},
			File{Name: fmt.Sprintf("reporte_%d.mp4", i), Category: CategoryVideo},
			File{Name: fmt.Sprintf("factura_%d.pdf", i), Category: CategoryDocument},
		)
	}
	res := Score(files, words(200)+" www.example.com 7")
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, VerdictApproved, res.Verdict)
}

func TestNotesBonusesAreCapped(t *testing.T) {
	res := Score(nil, words(80)+" http://a.io 1")
	assert.InDelta(t, 0.25, res.Breakdown.Notes, 1e-9)

	linkOnly := Score(nil, "see https://a.io")
	assert.InDelta(t, 2.0/80*0.15+0.06, linkOnly.Breakdown.Notes, 1e-9)

	digitOnly := Score(nil, "sold 3")
	assert.InDelta(t, 2.0/80*0.15+0.04, digitOnly.Breakdown.Notes, 1e-9)
}

func TestIsScreenshotIgnoresCase(t *testing.T) {
	assert.True(t, IsScreenshot("MY_SCREEN.PNG"))
	assert.True(t, IsScreenshot("Comprobante-Pago.jpg"))
	assert.True(t, IsScreenshot("weekly_Metrics.csv"))
	assert.False(t, IsScreenshot("holiday.jpg"))
}

func TestVerdictThresholds(t *testing.T) {
	assert.Equal(t, VerdictApproved, VerdictFor(0.90))
	assert.Equal(t, VerdictManualReview, VerdictFor(0.899))
	assert.Equal(t, VerdictManualReview, VerdictFor(0.70))
	assert.Equal(t, VerdictRejected, VerdictFor(0.699))
}

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"image/png":       CategoryImage,
		"video/mp4":       CategoryVideo,
		"application/pdf": CategoryDocument,
		"document":        CategoryDocument,
		"clip.MOV":        CategoryVideo,
		"notes.txt":       CategoryDocument,
		"archive.zip":     CategoryOther,
		"":                CategoryOther,
	}
	for raw, want := range cases {
		require.Equal(t, want, ParseCategory(raw), raw)
	}
}

func genFiles() gopter.Gen {
	file := gopter.CombineGens(
		gen.OneConstOf("a.png", "venta.jpg", "stats.mp4", "doc.pdf", "misc.bin", "Dashboard.PNG"),
		gen.OneConstOf(CategoryImage, CategoryVideo, CategoryDocument, CategoryOther),
	).Map(func(values []interface{}) File {
		return File{Name: values[0].(string), Category: values[1].(Category)}
	})
	return gen.SliceOf(file)
}

func TestScoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("identical input gives identical result", prop.ForAll(
		func(files []File, notes string) bool {
			return Score(files, notes) == Score(append([]File(nil), files...), notes)
		},
		genFiles(),
		gen.AnyString(),
	))

	properties.Property("adding a file never lowers the files component", prop.ForAll(
		func(files []File, extra string) bool {
			before := Score(files, "").Breakdown.Files
			after := Score(append(append([]File(nil), files...), File{Name: extra, Category: CategoryOther}), "").Breakdown.Files
			return after >= before
		},
		genFiles(),
		gen.AlphaString(),
	))

	properties.Property("more words never lower the notes component", prop.ForAll(
		func(n int) bool {
			return Score(nil, words(n+1)).Breakdown.Notes >= Score(nil, words(n)).Breakdown.Notes
		},
		gen.IntRange(0, 120),
	))

	properties.Property("score stays within bounds", prop.ForAll(
		func(files []File, notes string) bool {
			res := Score(files, notes)
			return res.Score >= 0 && res.Score <= 1
		},
		genFiles(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
