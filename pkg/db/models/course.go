package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Course is a catalog entry with its lessons and reviews stored inline.
type Course struct {
	ID          uuid.UUID                         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string                            `gorm:"column:title;not null"`
	Description string                            `gorm:"column:description;not null"`
	Price       decimal.Decimal                   `gorm:"column:price;type:numeric(12,2);not null"`
	PromoPrice  decimal.NullDecimal               `gorm:"column:promo_price;type:numeric(12,2)"`
	BannerURL   string                            `gorm:"column:banner_url;not null"`
	Category    string                            `gorm:"column:category;not null"`
	Author      string                            `gorm:"column:author;not null"`
	Lessons     datatypes.JSONSlice[Lesson]       `gorm:"column:lessons;type:jsonb;not null;default:'[]'"`
	Comments    datatypes.JSONSlice[Comment]      `gorm:"column:comments;type:jsonb;not null;default:'[]'"`
	Ebooks      datatypes.JSONSlice[Ebook]        `gorm:"column:ebooks;type:jsonb;not null;default:'[]'"`
	Quiz        datatypes.JSONSlice[QuizQuestion] `gorm:"column:quiz;type:jsonb;not null;default:'[]'"`
	FAQ         datatypes.JSONSlice[FAQItem]      `gorm:"column:faq;type:jsonb;not null;default:'[]'"`
	CreatedAt   time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Course) TableName() string { return "courses" }

// LessonIDs returns lesson ids in course order.
func (c Course) LessonIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

// EffectivePrice is the promotional price when one is set.
func (c Course) EffectivePrice() decimal.Decimal {
	if c.PromoPrice.Valid {
		return c.PromoPrice.Decimal
	}
	return c.Price
}

type Lesson struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	VideoURL    *string   `json:"video_url,omitempty"`
	DocumentURL *string   `json:"document_url,omitempty"`
	RichText    *string   `json:"rich_text,omitempty"`
	Duration    string    `json:"duration"`
}

type Comment struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserAvatar *string   `json:"user_avatar,omitempty"`
	Text       string    `json:"text"`
	Rating     *int      `json:"rating,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Ebook struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
	URL   string    `json:"url"`
}

type QuizQuestion struct {
	ID           uuid.UUID `json:"id"`
	Type         string    `json:"type"`
	Question     string    `json:"question"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"correct_index"`
}

type FAQItem struct {
	ID       uuid.UUID `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
}
