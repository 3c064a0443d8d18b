package persistence

import (
	"database/sql"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
	"github.com/proseed/proseed/modules/workflow/infrastructure/persistence/models"
)

func toDomainTask(m *models.Task) task.Task {
	return task.Task{
		ID:          m.ID,
		ProcessID:   m.ProcessID,
		ParentID:    nullToPointer(m.ParentID),
		Name:        m.Name,
		Description: m.Description,
		Completed:   m.Completed,
		Version:     m.Version,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainProcess(m *models.Process) process.Process {
	return process.Process{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDomainEmployee(m *models.Employee) employee.Employee {
	return employee.Employee{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		RoleID:       nullToPointer(m.RoleID),
		DepartmentID: nullToPointer(m.DepartmentID),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toDomainEntry(kind catalog.Kind, m *models.CatalogEntry) catalog.Entry {
	return catalog.Entry{ID: m.ID, Kind: kind, Name: m.Name}
}

func pointerToNull(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullToPointer(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
