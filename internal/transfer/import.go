package transfer

import (
	"fmt"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/ids"
	"github.com/starford/smartstudy/internal/models"
)

// Strategy selects how incoming entities are combined with live ones.
type Strategy string

const (
	// StrategyCopy imports everything under fresh ids, leaving live data
	// untouched.
	StrategyCopy Strategy = "copy"
	// StrategyMerge overwrites live entities sharing an id and appends the
	// rest.
	StrategyMerge Strategy = "merge"
)

// ImportedSuffix marks the names of copy-imported subjects.
const ImportedSuffix = " (Imported)"

// ParseStrategy validates s.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyCopy, StrategyMerge:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("transfer: strategy %q: %w", s, apperr.ErrValidation)
}

// Report describes the outcome of an import.
type Report struct {
	Strategy Strategy `json:"strategy"`
	Added    Counts   `json:"added"`
	Replaced Counts   `json:"replaced"`
	// Dropped counts copy-imported entities whose subject is not part of
	// the bundle.
	Dropped Counts `json:"dropped"`
}

// Import applies data to c. The result is computed entirely in memory; c is
// not modified.
func Import(c models.Collections, data Data, strategy Strategy) (models.Collections, Report, error) {
	out := c.Clone()
	rep := Report{Strategy: strategy}
	switch strategy {
	case StrategyCopy:
		importCopy(&out, data, &rep)
	case StrategyMerge:
		importMerge(&out, data, &rep)
	default:
		return c, Report{}, fmt.Errorf("transfer: strategy %q: %w", strategy, apperr.ErrValidation)
	}
	return out, rep, nil
}

func importCopy(c *models.Collections, data Data, rep *Report) {
	subjectIDs := make(map[string]string, len(data.Subjects))
	for _, s := range data.Subjects {
		newID := ids.New()
		subjectIDs[s.ID] = newID
		s.ID = newID
		s.Name += ImportedSuffix
		c.Subjects = append(c.Subjects, s)
		rep.Added.Subjects++
	}

	// Resource ids are assigned up front so audio attachments in notes can
	// be pointed at their copied resource.
	resourceIDs := make(map[string]string, len(data.Resources))
	for _, r := range data.Resources {
		if _, ok := subjectIDs[r.SubjectID]; ok {
			resourceIDs[r.ID] = newResourceID(r)
		}
	}

	for _, n := range data.Notes {
		sid, ok := subjectIDs[n.SubjectID]
		if !ok {
			rep.Dropped.Notes++
			continue
		}
		n.ID = ids.New()
		n.SubjectID = sid
		n.Content = relinkAudio(n.Content, resourceIDs)
		c.Notes = append(c.Notes, n)
		rep.Added.Notes++
	}
	for _, t := range data.Tasks {
		sid, ok := subjectIDs[t.SubjectID]
		if !ok {
			rep.Dropped.Tasks++
			continue
		}
		t.ID = ids.New()
		t.SubjectID = sid
		c.Tasks = append(c.Tasks, t)
		rep.Added.Tasks++
	}
	for _, r := range data.Resources {
		sid, ok := subjectIDs[r.SubjectID]
		if !ok {
			rep.Dropped.Resources++
			continue
		}
		r.ID = resourceIDs[r.ID]
		r.SubjectID = sid
		c.Resources = append(c.Resources, r)
		rep.Added.Resources++
	}
}

func newResourceID(r models.Resource) string {
	if r.Type == models.ResourceAudio {
		return models.AudioResourcePrefix + ids.New()
	}
	return ids.New()
}

// relinkAudio points audio attachments at copied resources. Content without
// affected attachments is returned unchanged.
func relinkAudio(content string, resourceIDs map[string]string) string {
	d := document.Decode(content)
	changed := false
	for i, a := range d.Audios {
		if newID, ok := resourceIDs[a.ResourceID()]; ok {
			d.Audios[i].LinkedResourceID = newID
			changed = true
		}
	}
	if !changed {
		return content
	}
	return document.EncodeDecoded(d)
}

func importMerge(c *models.Collections, data Data, rep *Report) {
	for _, s := range data.Subjects {
		c.Subjects = merge(c.Subjects, s, func(v models.Subject) string { return v.ID }, &rep.Added.Subjects, &rep.Replaced.Subjects)
	}
	for _, n := range data.Notes {
		c.Notes = merge(c.Notes, n, func(v models.Note) string { return v.ID }, &rep.Added.Notes, &rep.Replaced.Notes)
	}
	for _, t := range data.Tasks {
		c.Tasks = merge(c.Tasks, t, func(v models.Task) string { return v.ID }, &rep.Added.Tasks, &rep.Replaced.Tasks)
	}
	for _, r := range data.Resources {
		c.Resources = merge(c.Resources, r, func(v models.Resource) string { return v.ID }, &rep.Added.Resources, &rep.Replaced.Resources)
	}
}

func merge[T any](list []T, v T, key func(T) string, added, replaced *int) []T {
	for i := range list {
		if key(list[i]) == key(v) {
			list[i] = v
			*replaced++
			return list
		}
	}
	*added++
	return append(list, v)
}
