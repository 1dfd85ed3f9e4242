package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/akademyx/admissions/core"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    string    `json:"duration"`
	Price       float64   `json:"price"`
	Modules     []string  `json:"modules"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// NewCourse contains information needed to publish a Course.
type NewCourse struct {
	Title       string   `json:"title" validate:"required,min=2,max=100"`
	Description string   `json:"description" validate:"required,min=10"`
	Duration    string   `json:"duration" validate:"required"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	Modules     []string `json:"modules" validate:"required,min=1,dive,required"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Duration = core.CleanString(nc.Duration)
	for i, mod := range nc.Modules {
		nc.Modules[i] = core.CleanString(mod)
	}
	return validate.Struct(nc)
}
