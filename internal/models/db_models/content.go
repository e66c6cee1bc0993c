package db_models

import (
	"github.com/google/uuid"
)

// Ownership rows for purchasable content. Only the fields the revenue
// distributor needs to resolve stakeholders live here; gameplay belongs
// to the quiz domain service.

type Quiz struct {
	BaseModel
	AuthorID uuid.UUID `gorm:"index"`
	Title    string
}

type Question struct {
	BaseModel
	AuthorID uuid.UUID `gorm:"index"`
}

type Battle struct {
	BaseModel
	Title string
}

// BattleQuestion links a battle to the questions it is composed of. The
// stakeholder pool of a battle splits evenly per question, then sums per
// distinct author.
type BattleQuestion struct {
	BaseModel
	BattleID   uuid.UUID `gorm:"index"`
	QuestionID uuid.UUID `gorm:"index"`

	Question Question `gorm:"foreignKey:QuestionID"`
}

type Tournament struct {
	BaseModel
	OrganizerID uuid.UUID `gorm:"index"`
	Title       string
}
