package memory

import (
	"maps"
	"sort"

	"github.com/proseed/proseed/modules/workflow/domain/catalog"
	"github.com/proseed/proseed/modules/workflow/domain/employee"
	"github.com/proseed/proseed/modules/workflow/domain/process"
	"github.com/proseed/proseed/modules/workflow/domain/task"
)

// Links is a join table: left id -> set of right ids.
type Links map[int64]map[int64]struct{}

func (l Links) Add(left, right int64) {
	set, ok := l[left]
	if !ok {
		set = map[int64]struct{}{}
		l[left] = set
	}
	set[right] = struct{}{}
}

func (l Links) Remove(left, right int64) {
	if set, ok := l[left]; ok {
		delete(set, right)
		if len(set) == 0 {
			delete(l, left)
		}
	}
}

// Of returns the right ids linked to left, sorted.
func (l Links) Of(left int64) []int64 {
	return sortedKeys(l[left])
}

// Inverse returns the left ids linked to right, sorted.
func (l Links) Inverse(right int64) []int64 {
	out := []int64{}
	for left, set := range l {
		if _, ok := set[right]; ok {
			out = append(out, left)
		}
	}
	sortIDs(out)
	return out
}

func (l Links) Referenced(right int64) bool {
	for _, set := range l {
		if _, ok := set[right]; ok {
			return true
		}
	}
	return false
}

func (l Links) clone() Links {
	out := make(Links, len(l))
	for left, set := range l {
		out[left] = maps.Clone(set)
	}
	return out
}

// State is the whole in-memory database. Every field is exported so that
// the badger backend can snapshot it as JSON.
type State struct {
	Sequences map[string]int64                         `json:"sequences"`
	Processes map[int64]process.Process                `json:"processes"`
	Tasks     map[int64]task.Task                      `json:"tasks"`
	Employees map[int64]employee.Employee              `json:"employees"`
	Catalog   map[catalog.Kind]map[int64]catalog.Entry `json:"catalog"`

	TaskEmployees   Links `json:"task_employees"`
	TaskSkills      Links `json:"task_skills"`
	TaskDepartments Links `json:"task_departments"`
	EmployeeSkills  Links `json:"employee_skills"`
}

func NewState() *State {
	s := &State{}
	s.normalize()
	return s
}

// normalize fills the maps a decoded snapshot may lack.
func (s *State) normalize() {
	if s.Sequences == nil {
		s.Sequences = map[string]int64{}
	}
	if s.Processes == nil {
		s.Processes = map[int64]process.Process{}
	}
	if s.Tasks == nil {
		s.Tasks = map[int64]task.Task{}
	}
	if s.Employees == nil {
		s.Employees = map[int64]employee.Employee{}
	}
	if s.Catalog == nil {
		s.Catalog = map[catalog.Kind]map[int64]catalog.Entry{}
	}
	for _, kind := range catalog.Kinds {
		if s.Catalog[kind] == nil {
			s.Catalog[kind] = map[int64]catalog.Entry{}
		}
	}
	for _, l := range []*Links{&s.TaskEmployees, &s.TaskSkills, &s.TaskDepartments, &s.EmployeeSkills} {
		if *l == nil {
			*l = Links{}
		}
	}
}

func (s *State) Clone() *State {
	out := &State{
		Sequences:       maps.Clone(s.Sequences),
		Processes:       maps.Clone(s.Processes),
		Tasks:           maps.Clone(s.Tasks),
		Employees:       maps.Clone(s.Employees),
		Catalog:         make(map[catalog.Kind]map[int64]catalog.Entry, len(s.Catalog)),
		TaskEmployees:   s.TaskEmployees.clone(),
		TaskSkills:      s.TaskSkills.clone(),
		TaskDepartments: s.TaskDepartments.clone(),
		EmployeeSkills:  s.EmployeeSkills.clone(),
	}
	for kind, entries := range s.Catalog {
		out.Catalog[kind] = maps.Clone(entries)
	}
	return out
}

func (s *State) nextID(sequence string) int64 {
	s.Sequences[sequence]++
	return s.Sequences[sequence]
}

func sortedKeys(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return []int64{}
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
