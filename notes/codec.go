// ABOUTME: Codec for a deal's note history stored in a single text field
// ABOUTME: Splits dated fragments, extracts base64 attachment markers and prunes empty fragments
package notes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/dealflow/models"
)

const rule = "──────────────────────────"

// Separator joins fragments inside Deal.Notes.
const Separator = "\n\n" + rule + "\n"

// ruleStandIn replaces the rule inside fragment text so it can never split a fragment.
var ruleStandIn = strings.Repeat("-", len([]rune(rule)))

// StampLayout is the bracketed date format written on save.
const StampLayout = "02/01/2006, 15:04"

const dayLayout = "02/01/2006"

// DefaultLabel is returned by PreviewLabel when there is nothing dated to show.
const DefaultLabel = "Notes"

var (
	stampRe      = regexp.MustCompile(`^\[(\d{1,2})/(\d{1,2})/(\d{4}),\s*(\d{1,2}):(\d{2})\]\s?`)
	attachmentRe = regexp.MustCompile(`\n?<<Attachment:([^:>]*):(.*?):([A-Za-z0-9+/=]*)>>`)
)

// Decode splits a raw notes field into fragments. Stamps are read as local wall-clock time.
func Decode(raw string) []models.Fragment {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, Separator)
	frags := make([]models.Fragment, 0, len(parts))
	for _, part := range parts {
		frags = append(frags, decodeFragment(part))
	}
	return frags
}

func decodeFragment(part string) models.Fragment {
	var frag models.Fragment

	body := part
	if m := stampRe.FindStringSubmatch(part); m != nil {
		frag.DateText = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(m[0]), "["), "]")
		frag.Stamp = parseStamp(m[1:])
		body = part[len(m[0]):]
	}

	for _, m := range attachmentRe.FindAllStringSubmatch(body, -1) {
		frag.Attachments = append(frag.Attachments, models.Attachment{
			Type: m[1],
			Name: m[2],
			Data: m[3],
		})
	}
	frag.Text = strings.TrimSpace(attachmentRe.ReplaceAllString(body, ""))

	return frag
}

// parseStamp turns day, month, year, hour, minute captures into a time.
// Out-of-range values (31/02, 25:00) yield nil rather than a normalised date.
func parseStamp(fields []string) *time.Time {
	n := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil
		}
		n[i] = v
	}
	day, month, year, hour, minute := n[0], n[1], n[2], n[3], n[4]

	// Stamps carry no zone, so validate the wall clock in UTC where no hour is skipped.
	u := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
	if u.Day() != day || int(u.Month()) != month || u.Hour() != hour || u.Minute() != minute {
		return nil
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local)
	return &t
}

// Encode renders fragments back into the stored form. Fragments without text
// and without attachments are dropped, so a bare date stamp is never persisted.
func Encode(frags []models.Fragment) string {
	out := make([]string, 0, len(frags))
	for _, frag := range frags {
		if !frag.HasContent() {
			continue
		}
		out = append(out, encodeFragment(frag))
	}
	return strings.Join(out, Separator)
}

func encodeFragment(frag models.Fragment) string {
	var b strings.Builder

	date := frag.DateText
	if date == "" && frag.Stamp != nil {
		date = frag.Stamp.Format(StampLayout)
	}
	if date != "" {
		b.WriteString("[")
		b.WriteString(date)
		b.WriteString("] ")
	}
	b.WriteString(strings.ReplaceAll(strings.TrimSpace(frag.Text), rule, ruleStandIn))
	for _, a := range frag.Attachments {
		fmt.Fprintf(&b, "\n<<Attachment:%s:%s:%s>>", a.Type, markerName(a.Name), a.Data)
	}
	return b.String()
}

// markerName keeps a file name from closing the attachment marker early.
// Colons are fine: the name runs up to the last colon before the payload.
func markerName(name string) string {
	return strings.NewReplacer(">", "_", "\n", " ").Replace(name)
}

// Prune re-encodes raw notes, removing empty fragments. Pruning pruned notes is a no-op.
func Prune(raw string) string {
	return Encode(Decode(raw))
}

// Edit replaces a fragment's text. A fragment with content is re-stamped to now;
// one that becomes empty loses its stamp.
func Edit(frag *models.Fragment, text string, now time.Time) {
	frag.Text = text
	if frag.HasContent() {
		stamp := now.Truncate(time.Minute)
		frag.Stamp = &stamp
		frag.DateText = stamp.Format(StampLayout)
		return
	}
	frag.Stamp = nil
	frag.DateText = ""
}

// EditAt edits the fragment at index inside raw notes and returns the pruned result.
func EditAt(raw string, index int, text string, now time.Time) (string, error) {
	frags := Decode(raw)
	if index < 0 || index >= len(frags) {
		return "", fmt.Errorf("note fragment %d out of range (have %d)", index, len(frags))
	}
	Edit(&frags[index], text, now)
	return Encode(frags), nil
}

// Append adds a new stamped fragment to raw notes.
func Append(raw, text string, attachments []models.Attachment, now time.Time) string {
	frags := Decode(raw)
	frag := models.Fragment{Attachments: attachments}
	Edit(&frag, text, now)
	frags = append(frags, frag)
	return Encode(frags)
}

// PreviewLabel summarises when the notes were last touched: "Today", "Yesterday",
// a DD/MM/YYYY date, or "Notes" when nothing dated has content.
func PreviewLabel(raw string, now time.Time) string {
	var latest *time.Time
	for _, frag := range Decode(raw) {
		if !frag.HasContent() || frag.Stamp == nil {
			continue
		}
		if latest == nil || frag.Stamp.After(*latest) {
			latest = frag.Stamp
		}
	}
	if latest == nil {
		return DefaultLabel
	}

	switch {
	case sameDay(*latest, now):
		return "Today"
	case sameDay(*latest, now.AddDate(0, 0, -1)):
		return "Yesterday"
	}
	return latest.Format(dayLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
