package memory

import (
	"time"

	"github.com/api-sage/ledger-workflow-engine/src/internal/domain"
)

func inRange(t time.Time, from, to *time.Time) bool {
	d := domain.DateOf(t)
	if from != nil && d.Before(domain.DateOf(*from)) {
		return false
	}
	if to != nil && d.After(domain.DateOf(*to)) {
		return false
	}
	return true
}
