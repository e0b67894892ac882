package content

import "time"

// CaseStudy is one exam-style vignette. Premium studies are only served
// to entitled subscribers; the listing metadata is always public.
type CaseStudy struct {
	ID      string `gorm:"primaryKey;type:uuid"`
	Slug    string `gorm:"not null;uniqueIndex:idx_case_studies_slug"`
	Title   string `gorm:"not null"`
	Topic   string
	Summary string `gorm:"type:text"`
	Premium bool   `gorm:"not null;default:true"`

	Questions []Question `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Question holds the three sections a case-study item is rendered from.
// Text is stored with inline TeX untouched; the client typesets it.
type Question struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	CaseStudyID string `gorm:"type:uuid;index"`
	Position    int    `gorm:"not null"`
	Prompt      string `gorm:"type:text"`
	Concept     string `gorm:"type:text"`
	Solution    string `gorm:"type:text"`
	CreatedAt   time.Time
}
