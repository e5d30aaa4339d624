package answer

import (
	"sort"
	"strings"

	"github.com/daniss/Raggy-sub000/internal/model"
)

// Document is one indexed file of the reference corpus. Real deployments keep
// retrieval behind the API; this corpus only exists so answerd can produce
// plausible source lists for local development and end-to-end tests.
type Document struct {
	ID       string
	Filename string
	Excerpts []Excerpt
}

type Excerpt struct {
	Text    string
	Page    int
	Section string
}

// DefaultCorpus returns the built-in documents served when no corpus is
// configured.
func DefaultCorpus() []Document {
	return []Document{
		{
			ID:       "doc-onboarding",
			Filename: "guide-onboarding.pdf",
			Excerpts: []Excerpt{
				{Text: "Les nouveaux collaborateurs reçoivent leurs accès dans les 48 heures suivant la signature du contrat.", Page: 3, Section: "Arrivée"},
				{Text: "Le matériel informatique est commandé par le service IT après validation du manager.", Page: 7, Section: "Équipement"},
			},
		},
		{
			ID:       "doc-conges",
			Filename: "politique-conges.pdf",
			Excerpts: []Excerpt{
				{Text: "Chaque salarié dispose de 25 jours de congés payés par année complète de travail.", Page: 1, Section: "Droits"},
				{Text: "Les demandes de congés doivent être déposées au moins deux semaines à l'avance.", Page: 2, Section: "Procédure"},
			},
		},
		{
			ID:       "doc-securite",
			Filename: "charte-securite.pdf",
			Excerpts: []Excerpt{
				{Text: "L'authentification à deux facteurs est obligatoire pour tous les comptes internes.", Page: 4, Section: "Accès"},
			},
		},
	}
}

// Retrieve scores every excerpt against the question by term overlap and
// returns the top matches as a source list with 1-based contiguous indexes.
func Retrieve(question string, docs []Document, limit int) []model.Source {
	terms := tokenize(question)

	type scored struct {
		source model.Source
		score  float64
	}

	var candidates []scored
	for _, doc := range docs {
		for _, ex := range doc.Excerpts {
			score := overlap(terms, tokenize(ex.Text))
			if score <= 0 {
				continue
			}
			candidates = append(candidates, scored{
				source: model.Source{
					DocumentID: doc.ID,
					Filename:   doc.Filename,
					Excerpt:    ex.Text,
					Relevance:  score,
					Page:       ex.Page,
					Section:    ex.Section,
				},
				score: score,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	sources := make([]model.Source, len(candidates))
	for i, c := range candidates {
		c.source.Index = i + 1
		sources[i] = c.source
	}
	return sources
}

func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r < 0x80
	}) {
		if len(word) >= 3 {
			terms[word] = struct{}{}
		}
	}
	return terms
}

// overlap returns the fraction of question terms present in the excerpt,
// which lands naturally in [0,1].
func overlap(question, excerpt map[string]struct{}) float64 {
	if len(question) == 0 {
		return 0
	}
	matched := 0
	for term := range question {
		if _, ok := excerpt[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(question))
}
