package models

import "time"

// RelevantCRL is one retrieved letter backing an answer, with its
// similarity score against the question.
type RelevantCRL struct {
	ID          string  `json:"id"`
	CompanyName string  `json:"company_name"`
	ProductName string  `json:"product_name"`
	LetterYear  int     `json:"letter_year"`
	Score       float64 `json:"similarity_score"`
}

// QAResponse is the answer to a question with its supporting letters.
type QAResponse struct {
	Question     string        `json:"question"`
	Answer       string        `json:"answer"`
	RelevantCRLs []RelevantCRL `json:"relevant_crls"`
	Confidence   float64       `json:"confidence"` // 0..1
	Model        string        `json:"model"`
}

// QAHistory is the recent-questions response for the history endpoint.
type QAHistory struct {
	Items []*QARecord `json:"items"`
	Total int         `json:"total"`
}

// QARecord is a persisted question/answer pair.
type QARecord struct {
	ID         string    `json:"id" db:"id"`
	Question   string    `json:"question" db:"question"`
	Answer     string    `json:"answer" db:"answer"`
	Confidence float64   `json:"confidence" db:"confidence"`
	Model      string    `json:"model" db:"model"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
