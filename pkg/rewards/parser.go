package rewards

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// badgeRowMarker starts each per-app block of the badge document.
const badgeRowMarker = `<div class="badge_row`

var (
	gamecardRe  = regexp.MustCompile(`/gamecards/(\d+)`)
	noDropsRe   = regexp.MustCompile(`No card drops remaining`)
	remainingRe = regexp.MustCompile(`(\d+) card drops? remaining`)
	earnedRe    = regexp.MustCompile(`Card drops earned:\s*(\d+)`)
	receivedRe  = regexp.MustCompile(`Card drops received:\s*(\d+)`)
	hoursRe     = regexp.MustCompile(`([0-9][0-9.,]*) hrs on record`)
)

// ParseBadgeDocument extracts one RewardRecord per recognizable badge
// block. Markup drifts, so recognition is layered: a block with no
// usable remaining marker still yields a record, just with an unknown
// count. Blocks without a gamecards link are not card badges and are
// skipped entirely.
func ParseBadgeDocument(doc string) []types.RewardRecord {
	var records []types.RewardRecord
	for _, block := range splitBadgeRows(doc) {
		m := gamecardRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		id, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil {
			continue
		}

		rec := types.RewardRecord{AppID: uint32(id)}

		if hm := hoursRe.FindStringSubmatch(block); hm != nil {
			raw := strings.ReplaceAll(hm[1], ",", "")
			if hours, err := strconv.ParseFloat(raw, 64); err == nil {
				rec.Hours = &hours
			}
		}

		rec.Remaining = remainingCount(block)
		records = append(records, rec)
	}
	return records
}

// remainingCount applies the markers in order of reliability:
// an explicit zero marker, an explicit count, then the derived
// earned-minus-received difference. No match means unknown.
func remainingCount(block string) *int {
	if noDropsRe.MatchString(block) {
		zero := 0
		return &zero
	}

	if m := remainingRe.FindStringSubmatch(block); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return &n
		}
	}

	em := earnedRe.FindStringSubmatch(block)
	rm := receivedRe.FindStringSubmatch(block)
	if em != nil && rm != nil {
		earned, err1 := strconv.Atoi(em[1])
		received, err2 := strconv.Atoi(rm[1])
		if err1 == nil && err2 == nil {
			n := earned - received
			if n < 0 {
				n = 0
			}
			return &n
		}
	}

	return nil
}

func splitBadgeRows(doc string) []string {
	parts := strings.Split(doc, badgeRowMarker)
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}
