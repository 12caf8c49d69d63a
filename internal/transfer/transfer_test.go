package transfer

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/smartstudy/internal/apperr"
	"github.com/starford/smartstudy/internal/document"
	"github.com/starford/smartstudy/internal/models"
)

var now = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func live() models.Collections {
	return models.Collections{
		Subjects: []models.Subject{{ID: "s1", Name: "Physics"}, {ID: "s2", Name: "Art"}},
		Notes: []models.Note{
			{ID: "n1", SubjectID: "s1", Title: "Kinematics"},
			{ID: "n2", SubjectID: "s1", Title: "Dynamics"},
			{ID: "n3", SubjectID: "s1", Title: "Energy"},
			{ID: "n4", SubjectID: "s2", Title: "Colour"},
		},
		Tasks: []models.Task{
			{ID: "t1", SubjectID: "s1", Title: "Lab report"},
			{ID: "t2", SubjectID: "s2", Title: "Sketch"},
		},
		Resources: []models.Resource{
			{ID: "r1", SubjectID: "s1", Title: "Slides", Type: models.ResourceLink, URL: "https://x.test"},
		},
	}
}

func TestExport_SelectionScoping(t *testing.T) {
	b := Export(live(), Selection{SubjectIDs: []string{"s1"}, NoteIDs: []string{"n1"}}, now)

	assert.Equal(t, AppName, b.AppName)
	assert.Equal(t, Version, b.Version)
	assert.Equal(t, now, b.ExportedAt)
	require.Len(t, b.Data.Subjects, 1)
	require.Len(t, b.Data.Notes, 1)
	assert.Equal(t, "n1", b.Data.Notes[0].ID)
	require.Len(t, b.Data.Tasks, 1)
	assert.Equal(t, "t1", b.Data.Tasks[0].ID)
	assert.Len(t, b.Data.Resources, 1)
}

func TestExport_NoteOfUnselectedSubjectIgnored(t *testing.T) {
	b := Export(live(), Selection{SubjectIDs: []string{"s1"}, NoteIDs: []string{"n1", "n4"}}, now)
	require.Len(t, b.Data.Notes, 1)
	assert.Equal(t, "n1", b.Data.Notes[0].ID)
}

func TestExport_SelectAll(t *testing.T) {
	c := live()
	b := Export(c, SelectAll(c), now)
	assert.Equal(t, Counts{Subjects: 2, Notes: 4, Tasks: 2, Resources: 1}, b.Preview().Counts)
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Export(live(), SelectAll(live()), now)))

	b, err := Decode(&buf)
	require.NoError(t, err)
	p := b.Preview()
	assert.Equal(t, 4, p.Counts.Notes)
	assert.True(t, p.ExportedAt.Equal(now))
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"malformed":   `{"appName": "SmartStudy", `,
		"wrong name":  `{"appName": "OtherApp", "version": 1, "data": {}}`,
		"missing":     `{"version": 1, "data": {}}`,
		"not object":  `[1,2,3]`,
		"empty input": ``,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			assert.True(t, errors.Is(err, apperr.ErrInvalidBundle), "err = %v", err)
		})
	}
}

func TestDecode_NormalizesMissingLists(t *testing.T) {
	b, err := Decode(strings.NewReader(`{"appName":"SmartStudy","version":1,"exportedAt":"2024-01-02T03:04:05.000Z","data":{"subjects":[{"id":"a","name":"A"}]}}`))
	require.NoError(t, err)
	assert.NotNil(t, b.Data.Notes)
	assert.NotNil(t, b.Data.Tasks)
	assert.NotNil(t, b.Data.Resources)
}

func TestImportCopy_IDIsolation(t *testing.T) {
	existing := models.Collections{Subjects: []models.Subject{{ID: "a", Name: "Original"}}}
	data := Data{
		Subjects: []models.Subject{{ID: "a", Name: "Chem"}},
		Notes:    []models.Note{{ID: "n1", SubjectID: "a", Title: "Atoms"}},
	}

	c, rep, err := Import(existing, data, StrategyCopy)
	require.NoError(t, err)
	require.Len(t, c.Subjects, 2)
	assert.Equal(t, models.Subject{ID: "a", Name: "Original"}, c.Subjects[0])

	imported := c.Subjects[1]
	assert.NotEqual(t, "a", imported.ID)
	assert.Equal(t, "Chem (Imported)", imported.Name)
	require.Len(t, c.Notes, 1)
	assert.Equal(t, imported.ID, c.Notes[0].SubjectID)
	assert.Equal(t, 1, rep.Added.Subjects)
	assert.Equal(t, 1, rep.Added.Notes)
}

func TestImportCopy_DropsOrphans(t *testing.T) {
	data := Data{
		Subjects:  []models.Subject{{ID: "a", Name: "A"}},
		Notes:     []models.Note{{ID: "n1", SubjectID: "a"}, {ID: "n2", SubjectID: "ghost"}},
		Tasks:     []models.Task{{ID: "t1", SubjectID: "ghost"}},
		Resources: []models.Resource{{ID: "r1", SubjectID: "ghost"}},
	}
	c, rep, err := Import(models.Collections{}, data, StrategyCopy)
	require.NoError(t, err)
	assert.Len(t, c.Notes, 1)
	assert.Empty(t, c.Tasks)
	assert.Empty(t, c.Resources)
	assert.Equal(t, Counts{Notes: 1, Tasks: 1, Resources: 1}, rep.Dropped)
}

func TestImportCopy_Twice(t *testing.T) {
	data := Data{
		Subjects: []models.Subject{{ID: "a", Name: "A"}},
		Tasks:    []models.Task{{ID: "t1", SubjectID: "a"}},
	}
	c, _, err := Import(models.Collections{}, data, StrategyCopy)
	require.NoError(t, err)
	c, _, err = Import(c, data, StrategyCopy)
	require.NoError(t, err)

	require.Len(t, c.Subjects, 2)
	assert.NotEqual(t, c.Subjects[0].ID, c.Subjects[1].ID)
	require.Len(t, c.Tasks, 2)
	assert.NotEqual(t, c.Tasks[0].ID, c.Tasks[1].ID)
}

func TestImportCopy_RelinksAudioResources(t *testing.T) {
	content := document.Encode("<p>lecture</p>", []models.AudioAttachment{{ID: "a1", URL: "data:audio/webm;base64,AA", Name: "rec"}}, "")
	data := Data{
		Subjects:  []models.Subject{{ID: "s", Name: "S"}},
		Notes:     []models.Note{{ID: "n", SubjectID: "s", Content: content}},
		Resources: []models.Resource{{ID: "res-audio-a1", SubjectID: "s", Type: models.ResourceAudio, URL: "data:audio/webm;base64,AA"}},
	}
	c, _, err := Import(models.Collections{}, data, StrategyCopy)
	require.NoError(t, err)

	require.Len(t, c.Resources, 1)
	newRes := c.Resources[0].ID
	assert.True(t, strings.HasPrefix(newRes, models.AudioResourcePrefix))
	assert.NotEqual(t, "res-audio-a1", newRes)

	d := document.Decode(c.Notes[0].Content)
	require.Len(t, d.Audios, 1)
	assert.Equal(t, newRes, d.Audios[0].ResourceID())
	assert.Equal(t, "<p>lecture</p>", d.Visible)
}

func TestImportMerge_Overwrite(t *testing.T) {
	existing := live()
	data := Data{Tasks: []models.Task{
		{ID: "t1", SubjectID: "s1", Title: "Lab report v2", Status: models.StatusDone},
		{ID: "t9", SubjectID: "s1", Title: "New"},
	}}

	c, rep, err := Import(existing, data, StrategyMerge)
	require.NoError(t, err)
	assert.Len(t, c.Tasks, len(existing.Tasks)+1)
	got, ok := c.FindTask("t1")
	require.True(t, ok)
	assert.Equal(t, "Lab report v2", got.Title)
	assert.Equal(t, models.StatusDone, got.Status)
	assert.Equal(t, 1, rep.Replaced.Tasks)
	assert.Equal(t, 1, rep.Added.Tasks)

	orig, _ := existing.FindTask("t1")
	assert.Equal(t, "Lab report", orig.Title, "input collections must not change")
}

func TestImportMerge_OneEntityPerID(t *testing.T) {
	data := Data{Subjects: []models.Subject{{ID: "s1", Name: "first"}, {ID: "s1", Name: "second"}}}
	c, _, err := Import(live(), data, StrategyMerge)
	require.NoError(t, err)
	assert.Len(t, c.Subjects, 2)
	s, _ := c.FindSubject("s1")
	assert.Equal(t, "second", s.Name)
}

func TestImport_UnknownStrategy(t *testing.T) {
	c := live()
	out, _, err := Import(c, Data{}, Strategy("replace-all"))
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, c, out)

	_, err = ParseStrategy("nope")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	s, err := ParseStrategy("merge")
	require.NoError(t, err)
	assert.Equal(t, StrategyMerge, s)
}
