package task

// Draft is an incoming create or update payload. Nil slices and pointers mean
// "leave unchanged"; empty slices mean "clear".
type Draft struct {
	ID          *int64
	Name        string
	Description string
	Completed   *bool
	ProcessID   *int64
	Parent      ParentChange
	Version     *int64
	SubTasks    []*Draft

	EmployeeIDs   []int64
	SkillIDs      []int64
	DepartmentIDs []int64
}

// ParentChange distinguishes "no change" from "move to root" (Set with a nil
// ID) and "move under ID".
type ParentChange struct {
	Set bool
	ID  *int64
}

func KeepParent() ParentChange {
	return ParentChange{}
}

func MoveToRoot() ParentChange {
	return ParentChange{Set: true}
}

func MoveUnder(id int64) ParentChange {
	return ParentChange{Set: true, ID: &id}
}

// IsNew reports whether the draft describes a task that does not exist yet.
func (d *Draft) IsNew() bool {
	return d.ID == nil
}

// Size counts the draft and all of its nested subtasks.
func (d *Draft) Size() int {
	n := 1
	for _, c := range d.SubTasks {
		if c != nil {
			n += c.Size()
		}
	}
	return n
}
