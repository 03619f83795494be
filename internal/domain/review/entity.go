package review

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLength 评价正文最大字数
const MaxTextLength = 1000

// Review 图书评价,每个用户对每本书最多一条
type Review struct {
	ID        uint
	BookID    uint
	UserID    uint
	UserName  string
	Rating    int // 1-5星
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReview 创建评价
func NewReview(bookID, userID uint, userName string, rating int, text string) (*Review, error) {
	text = strings.TrimSpace(text)
	if err := validate(rating, text); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Review{
		BookID:    bookID,
		UserID:    userID,
		UserName:  userName,
		Rating:    rating,
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Revise 修改评分和正文,保留CreatedAt
func (r *Review) Revise(userName string, rating int, text string) error {
	text = strings.TrimSpace(text)
	if err := validate(rating, text); err != nil {
		return err
	}
	r.UserName = userName
	r.Rating = rating
	r.Text = text
	r.UpdatedAt = time.Now()
	return nil
}

func validate(rating int, text string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return ErrTextTooLong
	}
	return nil
}

// Summary 评分汇总
type Summary struct {
	Average float64
	Count   int
}

// Summarize 计算平均分,没有评价时为0
func Summarize(reviews []*Review) Summary {
	if len(reviews) == 0 {
		return Summary{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return Summary{
		Average: float64(total) / float64(len(reviews)),
		Count:   len(reviews),
	}
}
