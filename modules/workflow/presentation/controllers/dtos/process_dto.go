package dtos

import (
	"time"

	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/services"
)

type ProcessDTO struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

func (dto *ProcessDTO) Ok() error {
	return validate(dto)
}

func (dto *ProcessDTO) ToEntity(id int64) process.Process {
	return process.Process{ID: id, Name: dto.Name, Description: dto.Description}
}

type ProcessResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProcessTreeResponse struct {
	ProcessResponse
	Tasks []*TaskTreeResponse `json:"tasks"`
}

func ProcessToResponse(p process.Process) ProcessResponse {
	return ProcessResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ProcessTreeToResponse(tree services.ProcessTree) ProcessTreeResponse {
	return ProcessTreeResponse{
		ProcessResponse: ProcessToResponse(tree.Process),
		Tasks:           TaskNodesToResponse(tree.Tasks),
	}
}
