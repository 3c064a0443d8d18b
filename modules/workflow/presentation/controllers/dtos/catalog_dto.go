package dtos

import "github.com/proseed/proseed/modules/workflow/domain/catalog"

type CatalogEntryDTO struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (dto *CatalogEntryDTO) Ok() error {
	return validate(dto)
}

type CatalogEntryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func EntryToResponse(e catalog.Entry) CatalogEntryResponse {
	return CatalogEntryResponse{ID: e.ID, Name: e.Name}
}

func EntriesToResponse(entries []catalog.Entry) []CatalogEntryResponse {
	out := make([]CatalogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryToResponse(e))
	}
	return out
}
