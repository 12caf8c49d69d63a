package models

// Collections is the complete live application state: one slice per
// persisted entity collection.
type Collections struct {
	Subjects  []Subject   `json:"subjects"`
	Tasks     []Task      `json:"tasks"`
	Notes     []Note      `json:"notes"`
	Resources []Resource  `json:"resources"`
	Trash     []TrashItem `json:"trash"`
}

// Clone returns a copy whose slices do not share backing arrays with c.
func (c Collections) Clone() Collections {
	return Collections{
		Subjects:  append([]Subject(nil), c.Subjects...),
		Tasks:     append([]Task(nil), c.Tasks...),
		Notes:     append([]Note(nil), c.Notes...),
		Resources: append([]Resource(nil), c.Resources...),
		Trash:     append([]TrashItem(nil), c.Trash...),
	}
}

// FindSubject returns the live subject with id.
func (c Collections) FindSubject(id string) (Subject, bool) {
	for _, s := range c.Subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// FindTask returns the live task with id.
func (c Collections) FindTask(id string) (Task, bool) {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// FindNote returns the live note with id.
func (c Collections) FindNote(id string) (Note, bool) {
	for _, n := range c.Notes {
		if n.ID == id {
			return n, true
		}
	}
	return Note{}, false
}

// FindResource returns the live resource with id.
func (c Collections) FindResource(id string) (Resource, bool) {
	for _, r := range c.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// FindTrash returns the trash record with id.
func (c Collections) FindTrash(id string) (TrashItem, bool) {
	for _, t := range c.Trash {
		if t.ID == id {
			return t, true
		}
	}
	return TrashItem{}, false
}
