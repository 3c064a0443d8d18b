package models

import (
	"database/sql"
	"time"
)

type Process struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Task struct {
	ID          int64
	ProcessID   int64
	ParentID    sql.NullInt64
	Name        string
	Description string
	Completed   bool
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Employee struct {
	ID           int64
	FirstName    string
	LastName     string
	RoleID       sql.NullInt64
	DepartmentID sql.NullInt64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CatalogEntry struct {
	ID   int64
	Name string
}
