package index

import (
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/resource"
)

// KindFulltext is the registry name of FulltextIndex.
const KindFulltext = "FulltextIndex"

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// FulltextIndex indexes text keys and ranks them against queries with
// BM25. Every distinct key is one document; an element matched through
// several keys gets the best of their scores.
type FulltextIndex struct {
	DictionaryIndex

	// terms maps a token to the keys containing it and its frequency there.
	terms       map[string]map[string]int
	docLengths  map[string]int
	totalLength int
}

// NewFulltext creates an empty FulltextIndex.
func NewFulltext() *FulltextIndex {
	return &FulltextIndex{
		DictionaryIndex: DictionaryIndex{
			guard: resource.NewGuard(KindFulltext),
			p:     newPostings(),
		},
		terms:      make(map[string]map[string]int),
		docLengths: make(map[string]int),
	}
}

var _ FulltextSearcher = (*FulltextIndex)(nil)

// Kind implements Index.
func (idx *FulltextIndex) Kind() string { return KindFulltext }

// tokenize lowercases text and splits it at every rune that is neither a
// letter nor a digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// AddOrUpdate implements Index. Only string keys are indexed.
func (idx *FulltextIndex) AddOrUpdate(key model.Value, id model.ElementID) error {
	if key.Kind != model.KindString {
		return nil
	}
	return idx.guard.Write(func() error {
		if idx.p.add(key, id) {
			idx.addDocLocked(key)
		}
		return nil
	})
}

// TryRemoveKey implements Index.
func (idx *FulltextIndex) TryRemoveKey(key model.Value) (removed bool, err error) {
	err = idx.guard.Write(func() error {
		if removed = idx.p.removeKey(key); removed {
			idx.deleteDocLocked(key)
		}
		return nil
	})
	return removed, err
}

// RemoveValue implements Index.
func (idx *FulltextIndex) RemoveValue(id model.ElementID) error {
	return idx.guard.Write(func() error {
		for _, key := range idx.p.removeValue(id) {
			idx.deleteDocLocked(key)
		}
		return nil
	})
}

// Wipe implements Index.
func (idx *FulltextIndex) Wipe() error {
	return idx.guard.Write(func() error {
		idx.p.wipe()
		clear(idx.terms)
		clear(idx.docLengths)
		idx.totalLength = 0
		return nil
	})
}

func (idx *FulltextIndex) addDocLocked(key model.Value) {
	doc := key.Key()
	tokens := tokenize(key.StringValue())
	idx.docLengths[doc] = len(tokens)
	idx.totalLength += len(tokens)
	for _, t := range tokens {
		docs, ok := idx.terms[t]
		if !ok {
			docs = make(map[string]int)
			idx.terms[t] = docs
		}
		docs[doc]++
	}
}

func (idx *FulltextIndex) deleteDocLocked(key model.Value) {
	doc := key.Key()
	length, ok := idx.docLengths[doc]
	if !ok {
		return
	}
	for _, t := range tokenize(key.StringValue()) {
		docs := idx.terms[t]
		delete(docs, doc)
		if len(docs) == 0 {
			delete(idx.terms, t)
		}
	}
	delete(idx.docLengths, doc)
	idx.totalLength -= length
}

// TryQuery implements FulltextSearcher. Results are ordered by descending
// score, ties by id. Highlights are the matching keys.
func (idx *FulltextIndex) TryQuery(query string) (res FulltextResult, found bool, err error) {
	err = idx.guard.Read(func() error {
		res = idx.queryLocked(query)
		return nil
	})
	return res, len(res.Elements) > 0, err
}

func (idx *FulltextIndex) queryLocked(query string) FulltextResult {
	docCount := len(idx.docLengths)
	if docCount == 0 {
		return FulltextResult{}
	}
	avgDL := float64(idx.totalLength) / float64(docCount)

	scores := make(map[string]float64)
	seen := make(map[string]struct{})
	for _, t := range tokenize(query) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		docs, ok := idx.terms[t]
		if !ok {
			continue
		}
		idf := computeIDF(docCount, len(docs))
		for doc, count := range docs {
			tf := float64(count)
			docLen := float64(idx.docLengths[doc])
			scores[doc] += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/avgDL))
		}
	}

	byID := make(map[model.ElementID]*FulltextElement)
	for doc, score := range scores {
		e := idx.p.m[doc]
		text := e.key.StringValue()
		it := e.ids.Iterator()
		for it.HasNext() {
			id := model.ElementID(it.Next())
			fe, ok := byID[id]
			if !ok {
				fe = &FulltextElement{ID: id}
				byID[id] = fe
			}
			fe.Highlights = append(fe.Highlights, text)
			fe.Score = math.Max(fe.Score, score)
		}
	}

	var res FulltextResult
	for _, fe := range byID {
		slices.Sort(fe.Highlights)
		res.Elements = append(res.Elements, *fe)
		res.MaxScore = math.Max(res.MaxScore, fe.Score)
	}
	slices.SortFunc(res.Elements, func(a, b FulltextElement) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return int(a.ID) - int(b.ID)
	})
	return res
}

func computeIDF(docCount, df int) float64 {
	n := float64(docCount)
	d := float64(df)
	return math.Log(1 + (n-d+0.5)/(d+0.5))
}
