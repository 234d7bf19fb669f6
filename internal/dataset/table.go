package dataset

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/agnivade/levenshtein"
	"golang.org/x/crypto/blake2b"

	"demandcast/pkg/contracts/domain"
)

// MinPoints is the smallest series the forecast model accepts
const MinPoints = 2

// Table is the cleaned, concatenated transaction table. It is immutable
// once built and safe for concurrent readers.
type Table struct {
	records     []domain.TransactionRecord
	index       map[string]*roaring.Bitmap
	items       []string
	fingerprint string
	sources     []domain.SourceStats
	from, to    time.Time
	loadedAt    time.Time
}

// NewTable indexes records, which must already be cleaned. The slice is
// owned by the table afterwards.
func NewTable(records []domain.TransactionRecord, sources []domain.SourceStats) *Table {
	t := &Table{
		records:  records,
		index:    make(map[string]*roaring.Bitmap),
		sources:  sources,
		loadedAt: time.Now().UTC(),
	}

	h, _ := blake2b.New256(nil)
	var buf [8]byte

	for i, rec := range records {
		bm, ok := t.index[rec.ItemID]
		if !ok {
			bm = roaring.New()
			t.index[rec.ItemID] = bm
		}
		bm.Add(uint32(i))

		if i == 0 || rec.Timestamp.Before(t.from) {
			t.from = rec.Timestamp
		}
		if i == 0 || rec.Timestamp.After(t.to) {
			t.to = rec.Timestamp
		}

		h.Write([]byte(rec.ItemID))
		h.Write([]byte{0x1f})
		binary.BigEndian.PutUint64(buf[:], uint64(rec.Timestamp.UnixNano()))
		h.Write(buf[:])
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(rec.Quantity))
		h.Write(buf[:])
	}

	for _, bm := range t.index {
		bm.RunOptimize()
	}

	t.items = make([]string, 0, len(t.index))
	for item := range t.index {
		t.items = append(t.items, item)
	}
	sort.Strings(t.items)

	t.fingerprint = hex.EncodeToString(h.Sum(nil))
	return t
}

// Len returns the number of cleaned rows
func (t *Table) Len() int { return len(t.records) }

// Record returns row i
func (t *Table) Record(i int) domain.TransactionRecord { return t.records[i] }

// ItemCount returns the number of distinct item identifiers
func (t *Table) ItemCount() int { return len(t.items) }

// Fingerprint is a blake2b-256 digest of the cleaned rows in order
func (t *Table) Fingerprint() string { return t.fingerprint }

// Info summarizes the table
func (t *Table) Info() domain.DatasetInfo {
	info := domain.DatasetInfo{
		Fingerprint: t.fingerprint,
		Rows:        len(t.records),
		Items:       len(t.items),
		Sources:     append([]domain.SourceStats(nil), t.sources...),
		LoadedAt:    t.loadedAt,
	}
	if len(t.records) > 0 {
		from, to := t.from, t.to
		info.From, info.To = &from, &to
	}
	return info
}

// Series extracts the time series of itemID. Matching is exact and
// case-sensitive, and points keep source row order. Zero matches is a
// NoMatchError; fewer than MinPoints is an InsufficientDataError.
func (t *Table) Series(itemID string) (domain.ItemSeries, error) {
	series := domain.ItemSeries{ItemID: itemID}

	n := t.Count(itemID)
	if n == 0 {
		return series, &NoMatchError{ItemID: itemID}
	}

	series.Points = make([]domain.SeriesPoint, 0, n)
	it := t.index[itemID].Iterator()
	for it.HasNext() {
		rec := t.Record(int(it.Next()))
		series.Points = append(series.Points, domain.SeriesPoint{
			Timestamp: rec.Timestamp,
			Quantity:  rec.Quantity,
		})
	}

	if len(series.Points) < MinPoints {
		return series, &InsufficientDataError{ItemID: itemID, Points: len(series.Points)}
	}
	return series, nil
}

// Suggest returns up to n known items closest to itemID by edit distance,
// compared case-insensitively. Items farther than half the query length are
// not suggested.
func (t *Table) Suggest(itemID string, n int) []string {
	query := strings.ToUpper(strings.TrimSpace(itemID))
	if n <= 0 || query == "" {
		return nil
	}

	limit := len([]rune(query)) / 2
	if limit < 1 {
		limit = 1
	}

	type candidate struct {
		item string
		dist int
	}
	var candidates []candidate
	for _, item := range t.items {
		if item == itemID {
			continue
		}
		d := levenshtein.ComputeDistance(query, strings.ToUpper(item))
		if d <= limit {
			candidates = append(candidates, candidate{item, d})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.item
	}
	return out
}

// Search lists items starting with prefix, case-insensitively, in sorted
// order. An empty prefix lists the first items.
func (t *Table) Search(prefix string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	p := strings.ToUpper(strings.TrimSpace(prefix))

	out := make([]string, 0, limit)
	for _, item := range t.items {
		if strings.HasPrefix(strings.ToUpper(item), p) {
			out = append(out, item)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Count returns the number of rows for itemID
func (t *Table) Count(itemID string) int {
	if bm, ok := t.index[itemID]; ok {
		return int(bm.GetCardinality())
	}
	return 0
}
