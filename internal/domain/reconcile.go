package domain

import "sort"

// QualityFlag is the reconciliation classifier's categorical verdict for one
// (date, listing) pair.
type QualityFlag string

const (
	FlagMatch            QualityFlag = "match"
	FlagSnapshotMissing  QualityFlag = "snapshot_missing"
	FlagMinorDiscrepancy QualityFlag = "minor_discrepancy"
	FlagLargeDiscrepancy QualityFlag = "large_discrepancy"
)

// discrepancyThreshold separates minor from large discrepancies: an absolute
// difference strictly greater than this is large.
const discrepancyThreshold = 5

// CountKey identifies one daily order count. Date uses the ISO form
// "2006-01-02" so keys compare and sort deterministically.
type CountKey struct {
	Date      string
	ListingID int64
}

// Classify joins the transactional and snapshot count maps and produces one
// ReconciledRecord per (date, listing) pair present in either source.
//
// Precedence, first matching rule wins:
//
//  1. no snapshot for the pair        → snapshot_missing, diff = transactional − 0
//  2. |transactional − snapshot| > 5  → large_discrepancy
//  3. transactional ≠ snapshot        → minor_discrepancy
//  4. otherwise                       → match
//
// Snapshot counts are assumed already floored to zero by the reader; the
// classifier performs no negativity handling. Output is sorted by date then
// listing id so identical inputs yield byte-identical record sets.
func Classify(transactional, snapshot map[CountKey]int64) []ReconciledRecord {
	keys := make([]CountKey, 0, len(transactional))
	for k := range transactional {
		keys = append(keys, k)
	}
	for k := range snapshot {
		if _, ok := transactional[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date < keys[j].Date
		}
		return keys[i].ListingID < keys[j].ListingID
	})

	records := make([]ReconciledRecord, 0, len(keys))
	for _, k := range keys {
		records = append(records, classifyPair(k, transactional[k], snapshot))
	}
	return records
}

func classifyPair(k CountKey, actual int64, snapshot map[CountKey]int64) ReconciledRecord {
	rec := ReconciledRecord{
		Date:        k.Date,
		ListingID:   k.ListingID,
		DailyOrders: actual,
	}

	snap, ok := snapshot[k]
	if !ok {
		rec.SnapshotVsActualDiff = actual // transactional − 0
		rec.DataQualityFlag = FlagSnapshotMissing
		return rec
	}

	rec.DailyOrdersFromSnapshot = &snap
	diff := actual - snap
	rec.SnapshotVsActualDiff = diff

	switch {
	case diff > discrepancyThreshold || diff < -discrepancyThreshold:
		rec.DataQualityFlag = FlagLargeDiscrepancy
	case diff != 0:
		rec.DataQualityFlag = FlagMinorDiscrepancy
	default:
		rec.DataQualityFlag = FlagMatch
	}
	return rec
}
