// Package scoring grades an evidence bundle into a 0..1 score and a verdict.
//
// The scorer is a pure function. The server uses it for the authoritative
// score and clients import it for the live preview, so both always agree.
package scoring

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryDocument Category = "document"
	CategoryOther    Category = "other"
)

type Verdict string

const (
	VerdictApproved     Verdict = "APPROVED"
	VerdictManualReview Verdict = "MANUAL_REVIEW"
	VerdictRejected     Verdict = "REJECTED"
)

// File is the part of an evidence file the scorer looks at.
type File struct {
	Name     string
	Category Category
}

// Breakdown holds the weighted contribution of each category.
type Breakdown struct {
	Files       float64 `json:"files"`
	Diversity   float64 `json:"diversity"`
	Notes       float64 `json:"notes"`
	Screenshots float64 `json:"screenshots"`
}

type Result struct {
	Score     float64   `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
	Verdict   Verdict   `json:"verdict"`
}

// ScreenshotKeywords mark a file as proof of results when found in its name.
var ScreenshotKeywords = []string{
	"screen", "captura", "screenshot", "evidencia", "resultado", "venta",
	"sale", "comprobante", "pago", "factura", "reporte", "dashboard",
	"analytics", "conversion", "stats", "metrics",
}

var (
	one = decimal.NewFromInt(1)

	filesWeight       = decimal.RequireFromString("0.30")
	diversityWeight   = decimal.RequireFromString("0.25")
	notesWeight       = decimal.RequireFromString("0.15")
	screenshotsWeight = decimal.RequireFromString("0.20")

	imageShare    = decimal.RequireFromString("0.40")
	videoShare    = decimal.RequireFromString("0.40")
	documentShare = decimal.RequireFromString("0.20")

	linkBonus  = decimal.RequireFromString("0.06")
	digitBonus = decimal.RequireFromString("0.04")
	notesCap   = decimal.RequireFromString("0.25")

	filesTarget       = decimal.NewFromInt(5)
	wordsTarget       = decimal.NewFromInt(80)
	screenshotsTarget = decimal.NewFromInt(3)

	approvedThreshold = decimal.RequireFromString("0.90")
	reviewThreshold   = decimal.RequireFromString("0.70")
)

var urlPattern = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)

// Score grades files and notes. It never fails; empty evidence scores zero.
func Score(files []File, notes string) Result {
	filesPart := ratio(len(files), filesTarget).Mul(filesWeight)
	diversityPart := diversity(files).Mul(diversityWeight)
	notesPart := notesScore(notes)
	screenshotsPart := ratio(CountScreenshots(files), screenshotsTarget).Mul(screenshotsWeight)

	total := decimal.Min(filesPart.Add(diversityPart).Add(notesPart).Add(screenshotsPart), one).Round(3)
	return Result{
		Score: total.InexactFloat64(),
		Breakdown: Breakdown{
			Files:       filesPart.InexactFloat64(),
			Diversity:   diversityPart.InexactFloat64(),
			Notes:       notesPart.InexactFloat64(),
			Screenshots: screenshotsPart.InexactFloat64(),
		},
		Verdict: verdictFor(total),
	}
}

// VerdictFor classifies an already rounded score.
func VerdictFor(score float64) Verdict {
	return verdictFor(decimal.NewFromFloat(score))
}

func verdictFor(score decimal.Decimal) Verdict {
	switch {
	case score.GreaterThanOrEqual(approvedThreshold):
		return VerdictApproved
	case score.GreaterThanOrEqual(reviewThreshold):
		return VerdictManualReview
	default:
		return VerdictRejected
	}
}

// CountScreenshots counts files whose name contains a result keyword.
func CountScreenshots(files []File) int {
	n := 0
	for _, f := range files {
		if IsScreenshot(f.Name) {
			n++
		}
	}
	return n
}

func IsScreenshot(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range ScreenshotKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// WordCount counts whitespace separated words.
func WordCount(notes string) int {
	return len(strings.Fields(notes))
}

func ratio(n int, target decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.NewFromInt(int64(n)).Div(target), one)
}

func diversity(files []File) decimal.Decimal {
	var hasImage, hasVideo, hasDocument bool
	for _, f := range files {
		switch f.Category {
		case CategoryImage:
			hasImage = true
		case CategoryVideo:
			hasVideo = true
		case CategoryDocument:
			hasDocument = true
		}
	}
	sum := decimal.Zero
	if hasImage {
		sum = sum.Add(imageShare)
	}
	if hasVideo {
		sum = sum.Add(videoShare)
	}
	if hasDocument {
		sum = sum.Add(documentShare)
	}
	return decimal.Min(sum, one)
}

func notesScore(notes string) decimal.Decimal {
	part := ratio(WordCount(notes), wordsTarget).Mul(notesWeight)
	if urlPattern.MatchString(notes) {
		part = part.Add(linkBonus)
	}
	if strings.IndexFunc(notes, unicode.IsDigit) >= 0 {
		part = part.Add(digitBonus)
	}
	return decimal.Min(part, notesCap)
}

// ParseCategory maps a mime type, a bare category or a file name onto a
// scoring category.
func ParseCategory(raw string) Category {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case v == "image" || strings.HasPrefix(v, "image/"):
		return CategoryImage
	case v == "video" || strings.HasPrefix(v, "video/"):
		return CategoryVideo
	case v == "document" || v == "application/pdf" || strings.HasPrefix(v, "text/") ||
		strings.Contains(v, "word") || strings.Contains(v, "spreadsheet") || strings.Contains(v, "excel"):
		return CategoryDocument
	}
	switch ext(v) {
	case "png", "jpg", "jpeg", "gif", "webp", "heic":
		return CategoryImage
	case "mp4", "mov", "webm", "avi", "mkv":
		return CategoryVideo
	case "pdf", "doc", "docx", "xls", "xlsx", "csv", "txt":
		return CategoryDocument
	}
	return CategoryOther
}

func ext(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return name[idx+1:]
}
