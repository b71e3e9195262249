package model

// TaxonomyEntity is any node of the board → class → subject → chapter → topic
// hierarchy. Every level has the same {id, name} shape.
type TaxonomyEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type (
	Board   = TaxonomyEntity
	Class   = TaxonomyEntity
	Subject = TaxonomyEntity
	Chapter = TaxonomyEntity
	Topic   = TaxonomyEntity
)

// Selected reports whether both id and name are filled in.
func (e TaxonomyEntity) Selected() bool {
	return e.ID != "" && e.Name != ""
}

// TaxonomyLevel names one level of the hierarchy.
type TaxonomyLevel string

const (
	LevelBoard   TaxonomyLevel = "board"
	LevelClass   TaxonomyLevel = "class"
	LevelSubject TaxonomyLevel = "subject"
	LevelChapter TaxonomyLevel = "chapter"
	LevelTopic   TaxonomyLevel = "topic"
)

// SyllabusMapping classifies a content question. The JSON keys follow the
// remote service, which uses singular names for the chapter and topic lists.
type SyllabusMapping struct {
	Board    Board     `json:"board"`
	Class    Class     `json:"class"`
	Subject  Subject   `json:"subject"`
	Chapters []Chapter `json:"chapter"`
	Topics   []Topic   `json:"topic,omitempty"`
}

// NewSyllabusMapping returns the empty mapping a fresh form starts with.
func NewSyllabusMapping() *SyllabusMapping {
	return &SyllabusMapping{
		Chapters: []Chapter{{}},
		Topics:   []Topic{{}},
	}
}

// SelectedChapterIDs returns the ids of chapter rows that have been chosen.
func (m SyllabusMapping) SelectedChapterIDs() []string {
	ids := make([]string, 0, len(m.Chapters))
	for _, ch := range m.Chapters {
		if ch.ID != "" {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

func (m SyllabusMapping) Clone() SyllabusMapping {
	out := m
	out.Chapters = cloneSlice(m.Chapters)
	out.Topics = cloneSlice(m.Topics)
	return out
}
