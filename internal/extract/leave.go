package extract

import (
	"regexp"
	"strings"

	"github.com/dgallion1/payrecon/internal/schema"
	"github.com/dgallion1/payrecon/internal/textnorm"
)

// leaveWindow is the anchor line plus the seven lines after it.
const leaveWindow = 8

// Anchors are matched on accent-folded lines. The current-year anchor stops
// at a word boundary, so a "Congés N-1" line also satisfies it.
var (
	leavePreviousRe = regexp.MustCompile(`(?i)\bconges\s+n-?1`)
	leaveCurrentRe  = regexp.MustCompile(`(?i)\bconges\s+n\b`)

	leaveItemRes = map[schema.LeaveItem]*regexp.Regexp{
		schema.ItemAcquired: regexp.MustCompile(`(?i)acquis\s*[:\-]?\s*(\d+(?:[.,]\d+)?)`),
		schema.ItemTaken:    regexp.MustCompile(`(?i)pris\s*[:\-]?\s*(\d+(?:[.,]\d+)?)`),
		schema.ItemBalance:  regexp.MustCompile(`(?i)solde\s*[:\-]?\s*(\d+(?:[.,]\d+)?)`),
	}
)

type leaveBlock map[schema.LeaveItem]*float64

// parseLeave locates the first "Congés N-1" and "Congés N" lines and reads
// the acquired/taken/balance counters from the window following each.
func parseLeave(lines []string) map[schema.LeavePeriod]leaveBlock {
	prev, cur := -1, -1
	for i, line := range lines {
		folded := textnorm.FoldAccents(line)
		if prev < 0 && leavePreviousRe.MatchString(folded) {
			prev = i
		}
		if cur < 0 && leaveCurrentRe.MatchString(folded) {
			cur = i
		}
		if prev >= 0 && cur >= 0 {
			break
		}
	}

	out := map[schema.LeavePeriod]leaveBlock{
		schema.PeriodPrevious: {},
		schema.PeriodCurrent:  {},
	}
	if prev >= 0 {
		out[schema.PeriodPrevious] = parseLeaveWindow(lines, prev)
	}
	if cur >= 0 {
		out[schema.PeriodCurrent] = parseLeaveWindow(lines, cur)
	}
	return out
}

func parseLeaveWindow(lines []string, start int) leaveBlock {
	end := min(start+leaveWindow, len(lines))
	win := strings.Join(lines[start:end], " ")

	block := leaveBlock{}
	for item, re := range leaveItemRes {
		m := re.FindStringSubmatch(win)
		if m == nil {
			continue
		}
		if v, ok := textnorm.ParseAmount(m[1]); ok {
			block[item] = &v
		}
	}
	return block
}
