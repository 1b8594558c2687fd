package courses

import (
	"math"
	"strings"
	"time"

	"github.com/academiaalbert/academia-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllCategories is the catalog filter value meaning "no category filter".
const AllCategories = "Todos"

type ListParams struct {
	Search   string
	Category string
}

type LessonInput struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Title       string     `json:"title" validate:"required"`
	VideoURL    *string    `json:"video_url,omitempty" validate:"omitempty,url"`
	DocumentURL *string    `json:"document_url,omitempty" validate:"omitempty,url"`
	RichText    *string    `json:"rich_text,omitempty"`
	Duration    string     `json:"duration"`
}

type EbookInput struct {
	Title string `json:"title" validate:"required"`
	URL   string `json:"url" validate:"required,url"`
}

type QuizInput struct {
	Type         string   `json:"type" validate:"omitempty,oneof=MULTIPLE_CHOICE TEXT"`
	Question     string   `json:"question" validate:"required"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
}

type FAQInput struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// CourseInput is the admin payload for creating or replacing a course.
type CourseInput struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description" validate:"required"`
	Price       decimal.Decimal  `json:"price"`
	PromoPrice  *decimal.Decimal `json:"promo_price,omitempty"`
	BannerURL   string           `json:"banner_url" validate:"required,url"`
	Category    string           `json:"category" validate:"required"`
	Author      string           `json:"author" validate:"required"`
	Lessons     []LessonInput    `json:"lessons" validate:"dive"`
	Ebooks      []EbookInput     `json:"ebooks" validate:"dive"`
	Quiz        []QuizInput      `json:"quiz" validate:"dive"`
	FAQ         []FAQInput       `json:"faq" validate:"dive"`
}

type ReviewInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Text   string `json:"text" validate:"required"`
}

// CourseSummary is the catalog card shape.
type CourseSummary struct {
	ID            uuid.UUID        `json:"id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Price         decimal.Decimal  `json:"price"`
	PromoPrice    *decimal.Decimal `json:"promo_price,omitempty"`
	BannerURL     string           `json:"banner_url"`
	Category      string           `json:"category"`
	Author        string           `json:"author"`
	LessonCount   int              `json:"lesson_count"`
	AverageRating float64          `json:"average_rating"`
	ReviewCount   int              `json:"review_count"`
}

// LessonOutline exposes lesson metadata without the content links.
type LessonOutline struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Duration string    `json:"duration"`
}

// CourseDetail is the public course page.
type CourseDetail struct {
	CourseSummary
	Lessons  []LessonOutline  `json:"lessons"`
	Comments []models.Comment `json:"comments"`
	FAQ      []models.FAQItem `json:"faq"`
	Ebooks   int              `json:"ebook_count"`
	Quiz     int              `json:"quiz_count"`
	Updated  time.Time        `json:"updated_at"`
}

func toSummary(c models.Course) CourseSummary {
	summary := CourseSummary{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Price:         c.Price,
		BannerURL:     c.BannerURL,
		Category:      c.Category,
		Author:        c.Author,
		LessonCount:   len(c.Lessons),
		AverageRating: AverageRating(c.Comments),
		ReviewCount:   len(c.Comments),
	}
	if c.PromoPrice.Valid {
		promo := c.PromoPrice.Decimal
		summary.PromoPrice = &promo
	}
	return summary
}

func toDetail(c models.Course) CourseDetail {
	lessons := make([]LessonOutline, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		lessons = append(lessons, LessonOutline{ID: l.ID, Title: l.Title, Duration: l.Duration})
	}
	return CourseDetail{
		CourseSummary: toSummary(c),
		Lessons:       lessons,
		Comments:      append([]models.Comment{}, c.Comments...),
		FAQ:           append([]models.FAQItem{}, c.FAQ...),
		Ebooks:        len(c.Ebooks),
		Quiz:          len(c.Quiz),
		Updated:       c.UpdatedAt,
	}
}

// AverageRating averages rated comments to one decimal place.
func AverageRating(comments []models.Comment) float64 {
	total, n := 0, 0
	for _, c := range comments {
		if c.Rating == nil || *c.Rating <= 0 {
			continue
		}
		total += *c.Rating
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(n)*10) / 10
}

func matches(c models.Course, params ListParams) bool {
	category := strings.TrimSpace(params.Category)
	if category != "" && category != AllCategories && !strings.EqualFold(c.Category, category) {
		return false
	}
	term := strings.ToLower(strings.TrimSpace(params.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), term) || strings.Contains(strings.ToLower(c.Description), term)
}

// apply copies the input onto course, keeping lesson ids that were supplied so
// completed-lesson records stay valid across edits.
func (in CourseInput) apply(course *models.Course) {
	course.Title = strings.TrimSpace(in.Title)
	course.Description = strings.TrimSpace(in.Description)
	course.Price = in.Price
	course.PromoPrice = decimal.NullDecimal{}
	if in.PromoPrice != nil {
		course.PromoPrice = decimal.NewNullDecimal(*in.PromoPrice)
	}
	course.BannerURL = strings.TrimSpace(in.BannerURL)
	course.Category = strings.TrimSpace(in.Category)
	course.Author = strings.TrimSpace(in.Author)

	course.Lessons = make([]models.Lesson, 0, len(in.Lessons))
	for _, l := range in.Lessons {
		id := uuid.New()
		if l.ID != nil && *l.ID != uuid.Nil {
			id = *l.ID
		}
		course.Lessons = append(course.Lessons, models.Lesson{
			ID:          id,
			Title:       strings.TrimSpace(l.Title),
			VideoURL:    l.VideoURL,
			DocumentURL: l.DocumentURL,
			RichText:    l.RichText,
			Duration:    strings.TrimSpace(l.Duration),
		})
	}

	course.Ebooks = make([]models.Ebook, 0, len(in.Ebooks))
	for _, e := range in.Ebooks {
		course.Ebooks = append(course.Ebooks, models.Ebook{ID: uuid.New(), Title: e.Title, URL: e.URL})
	}
	course.Quiz = make([]models.QuizQuestion, 0, len(in.Quiz))
	for _, q := range in.Quiz {
		kind := q.Type
		if kind == "" {
			kind = "MULTIPLE_CHOICE"
		}
		course.Quiz = append(course.Quiz, models.QuizQuestion{
			ID:           uuid.New(),
			Type:         kind,
			Question:     q.Question,
			Options:      append([]string{}, q.Options...),
			CorrectIndex: q.CorrectIndex,
		})
	}
	course.FAQ = make([]models.FAQItem, 0, len(in.FAQ))
	for _, f := range in.FAQ {
		course.FAQ = append(course.FAQ, models.FAQItem{ID: uuid.New(), Question: f.Question, Answer: f.Answer})
	}
	if course.Comments == nil {
		course.Comments = []models.Comment{}
	}
}
