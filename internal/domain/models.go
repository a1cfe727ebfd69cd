package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Assessment represents one exam whose pages carry a shared magic code.
type Assessment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	MagicCode     string          `db:"magic_code" json:"magic_code"`
	NumPapers     int             `db:"num_papers" json:"num_papers"`
	PagesPerPaper int             `db:"pages_per_paper" json:"pages_per_paper"`
	NumVersions   int             `db:"num_versions" json:"num_versions"`
	QuestionPages json.RawMessage `db:"question_pages" json:"question_pages"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// QuestionPageMap decodes the question_pages column: question number to the
// list of page numbers that question spans.
func (a *Assessment) QuestionPageMap() (map[int][]int, error) {
	m := map[int][]int{}
	if len(a.QuestionPages) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(a.QuestionPages, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Bundle represents one uploaded scan PDF and its derived page images.
type Bundle struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	AssessmentID uuid.UUID    `db:"assessment_id" json:"assessment_id"`
	Name         string       `db:"name" json:"name"`
	PDFHash      string       `db:"pdf_hash" json:"pdf_hash"`
	S3Bucket     string       `db:"s3_bucket" json:"-"`
	S3Key        string       `db:"s3_key" json:"-"`
	PageCount    int          `db:"page_count" json:"page_count"`
	Status       BundleStatus `db:"status" json:"status"`
	Committed    bool         `db:"committed" json:"committed"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// PageImage is one rasterized page owned by a bundle.
//
// The classification payload is carried in per-state columns: Paper/Page/
// Version for known pages, ExtraPaper/ExtraQuestions for extra pages, Reason
// for discard and error pages. A cast wipes the old state's payload and
// writes the new one in a single statement.
type PageImage struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	BundleID       uuid.UUID       `db:"bundle_id" json:"bundle_id"`
	BundleOrder    int             `db:"bundle_order" json:"bundle_order"`
	ImageHash      string          `db:"image_hash" json:"image_hash"`
	S3Bucket       string          `db:"s3_bucket" json:"-"`
	S3Key          string          `db:"s3_key" json:"-"`
	Rotation       int             `db:"rotation" json:"rotation"`
	State          Classification  `db:"state" json:"state"`
	Paper          *int            `db:"paper" json:"paper,omitempty"`
	Page           *int            `db:"page" json:"page,omitempty"`
	Version        *int            `db:"version" json:"version,omitempty"`
	ExtraPaper     *int            `db:"extra_paper" json:"extra_paper,omitempty"`
	ExtraQuestions json.RawMessage `db:"extra_questions" json:"extra_questions,omitempty"`
	Reason         string          `db:"reason" json:"reason,omitempty"`
	CornerCodes    json.RawMessage `db:"corner_codes" json:"corner_codes,omitempty"`
	Committed      bool            `db:"committed" json:"committed"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ExtraQuestionList decodes the extra_questions column.
func (p *PageImage) ExtraQuestionList() ([]int, error) {
	if len(p.ExtraQuestions) == 0 {
		return nil, nil
	}
	var qs []int
	if err := json.Unmarshal(p.ExtraQuestions, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// CommittedPage is the permanent record created when a page is pushed.
// Known pages occupy a (paper_number, page_number) slot; extra pages occupy
// (paper_number, question_number). Rows are never mutated after creation.
type CommittedPage struct {
	ID             uuid.UUID `db:"id" json:"id"`
	AssessmentID   uuid.UUID `db:"assessment_id" json:"assessment_id"`
	BundleID       uuid.UUID `db:"bundle_id" json:"bundle_id"`
	PageImageID    uuid.UUID `db:"page_image_id" json:"page_image_id"`
	PaperNumber    int       `db:"paper_number" json:"paper_number"`
	PageNumber     *int      `db:"page_number" json:"page_number,omitempty"`
	QuestionNumber *int      `db:"question_number" json:"question_number,omitempty"`
	Version        *int      `db:"version" json:"version,omitempty"`
	ImageHash      string    `db:"image_hash" json:"image_hash"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// CollisionMember is one page participating in an internal collision group.
type CollisionMember struct {
	PageImageID uuid.UUID `db:"page_image_id" json:"page_image_id"`
	BundleOrder int       `db:"bundle_order" json:"bundle_order"`
	Position    int       `json:"position"` // 1-based, for human-readable reports
}

// CollisionGroup is a set of pages within one bundle claiming the same
// (paper, page, version) identity.
type CollisionGroup struct {
	Paper   int               `json:"paper"`
	Page    int               `json:"page"`
	Version int               `json:"version"`
	Members []CollisionMember `json:"members"`
}

// ExternalCollision pairs an incoming known page with the committed page
// already occupying its slot.
type ExternalCollision struct {
	PageImageID     uuid.UUID `json:"page_image_id"`
	BundleOrder     int       `json:"bundle_order"`
	Paper           int       `json:"paper"`
	Page            int       `json:"page"`
	CommittedPageID uuid.UUID `json:"committed_page_id"`
	CommittedBundle uuid.UUID `json:"committed_bundle_id"`
}

// QuestionReady reports that every expected page of a question on one paper
// is now committed.
type QuestionReady struct {
	Paper    int `json:"paper"`
	Question int `json:"question"`
}

// BlockedPage is a page the push coordinator could not commit.
type BlockedPage struct {
	PageImageID uuid.UUID `json:"page_image_id"`
	BundleOrder int       `json:"bundle_order"`
	Reason      string    `json:"reason"`
}

// PushReport summarizes one push attempt over a bundle.
type PushReport struct {
	BundleID         uuid.UUID       `json:"bundle_id"`
	Committed        []uuid.UUID     `json:"committed"`
	AlreadyCommitted []uuid.UUID     `json:"already_committed"`
	Blocked          []BlockedPage   `json:"blocked"`
	QuestionsReady   []QuestionReady `json:"questions_ready"`
	BundleCommitted  bool            `json:"bundle_committed"`
}
